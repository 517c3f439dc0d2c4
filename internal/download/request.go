package download

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Request is one trigger: fetch SourceURL into <downloads dir>/FileName.
type Request struct {
	SourceURL *url.URL
	FileName  string
}

// NewRequest validates a raw trigger. The URL must be absolute http(s) with a
// host; the file name must be a single path element.
func NewRequest(rawURL, fileName string) (Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, &MalformedRequestError{Field: "url", Value: rawURL, Reason: "cannot be parsed", Err: err}
	}

	if !u.IsAbs() || u.Host == "" {
		return Request{}, &MalformedRequestError{Field: "url", Value: rawURL, Reason: "must be an absolute URL"}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Request{}, &MalformedRequestError{Field: "url", Value: rawURL, Reason: "scheme must be http or https"}
	}

	if err := validateFileName(fileName); err != nil {
		return Request{}, err
	}

	return Request{SourceURL: u, FileName: fileName}, nil
}

func validateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &MalformedRequestError{Field: "file_name", Value: name, Reason: "must not be empty"}
	case name == "." || name == "..":
		return &MalformedRequestError{Field: "file_name", Value: name, Reason: "must name a file"}
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return &MalformedRequestError{Field: "file_name", Value: name, Reason: "must not contain path separators"}
	case strings.ContainsRune(name, 0):
		return &MalformedRequestError{Field: "file_name", Value: name, Reason: "must not contain NUL"}
	}

	return nil
}
