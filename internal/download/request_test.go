package download

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/italolelis/fetchd/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("https://cdn.example.com/images/orig.jpg?size=large", "HugeFile.jpg")
	require.NoError(t, err)

	assert.Equal(t, "cdn.example.com", req.SourceURL.Host)
	assert.Equal(t, "HugeFile.jpg", req.FileName)
}

func TestMalformedRequestError(t *testing.T) {
	_, err := NewRequest("http://[::1", "a")

	var malformed *MalformedRequestError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "url", malformed.Field)
	assert.NotNil(t, errors.Unwrap(err), "parse error should be kept")
	assert.Contains(t, err.Error(), "cannot be parsed")
}

func TestTransferError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *TransferError
		want string
	}{
		{"with status", &TransferError{Operation: "connect", StatusCode: 503}, "transfer failed during connect (HTTP 503)"},
		{"with cause", &TransferError{Operation: "read", Err: errors.New("unexpected EOF")}, "transfer failed during read: unexpected EOF"},
		{"bare", &TransferError{Operation: "write"}, "transfer failed during write"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClassify(t *testing.T) {
	permErr := &PermissionError{Dir: "/d", Err: permission.ErrDenied}

	assert.Equal(t, FailureNone, classify(nil))
	assert.Equal(t, FailurePermission, classify(fmt.Errorf("run: %w", permErr)))
	assert.Equal(t, FailureTransfer, classify(&TransferError{Operation: "read"}))
	assert.Equal(t, FailureTransfer, classify(errors.New("anything else")))

	assert.Equal(t, "success", runStatus(nil))
	assert.Equal(t, "permission_denied", runStatus(permErr))
	assert.Equal(t, "transfer_error", runStatus(&TransferError{Operation: "read"}))

	assert.ErrorIs(t, permErr, permission.ErrDenied)
	assert.Equal(t, "no permission to write to /d", permErr.Error())
}

func TestDownloadsDir(t *testing.T) {
	dir := t.TempDir()

	got, err := DownloadsDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = DownloadsDir("relative/downloads")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "run_started", RunStarted.String())
	assert.Equal(t, "progress_changed", ProgressChanged.String())
	assert.Equal(t, "run_completed", RunCompleted.String())
	assert.Equal(t, "needs_permission", NeedsPermission.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}
