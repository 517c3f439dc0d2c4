package progress

import "io"

// Percent maps downloaded bytes onto [0,100]. The total is split into 100
// units of total/100 bytes (at least one byte each), so an unknown (<= 0) or
// tiny total reaches 100 after the first hundred bytes.
func Percent(total, downloaded int64) int {
	part := max(1, total/100)

	return int(min(100, max(0, downloaded)/part))
}

// Writer wraps an io.Writer and reports percent changes via a callback. The
// callback runs only when the computed percent differs from the last reported
// value; the initial value is 0.
type Writer struct {
	Writer   io.Writer
	Total    int64
	OnChange func(percent int)

	written int64
	percent int
}

func NewWriter(w io.Writer, total int64, cb func(percent int)) *Writer {
	return &Writer{
		Writer:   w,
		Total:    total,
		OnChange: cb,
	}
}

func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	if n > 0 {
		pw.written += int64(n)

		if pct := Percent(pw.Total, pw.written); pct != pw.percent {
			pw.percent = pct
			if pw.OnChange != nil {
				pw.OnChange(pct)
			}
		}
	}

	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}

	return n, err
}

// Written returns the number of bytes successfully written so far.
func (pw *Writer) Written() int64 {
	return pw.written
}

// Percent returns the last reported percent.
func (pw *Writer) Percent() int {
	return pw.percent
}
