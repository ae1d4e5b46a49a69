package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autodialer/internal/calls"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *FileBlobStore {
	t.Helper()
	s, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFileBlobStore_RoundTripAndMissing(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	_, err := s.Get(ctx, "absent.json")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	require.NoError(t, s.Put(ctx, "doc.json", []byte(`[1]`)))
	require.NoError(t, s.Put(ctx, "doc.json", []byte(`[1,2]`)))

	got, err := s.Get(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	leftovers, err := filepath.Glob(filepath.Join(s.Dir, ".doc.json.*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestNumberStore_MissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	numbers := NewNumberStore(newFileStore(t))

	got, err := numbers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, numbers.Replace(ctx, []string{"+15550001", "+15550002", "+15550001"}))
	got, err = numbers.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"+15550001", "+15550002", "+15550001"}, got)
}

func TestNumberStore_CorruptFileFailsFast(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, numbersKey), []byte(`{"numbers": 7}`), 0o644))

	_, err := NewNumberStore(s).List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptState), "expected ErrCorruptState, got %v", err)
}

func TestJSONLogStore_AppendUpdateList(t *testing.T) {
	ctx := context.Background()
	logs := NewJSONLogStore(newFileStore(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, logs.Append(ctx, calls.CallLogEntry{PhoneNumber: "+1", CallSID: "CA1", Status: calls.CallStatusQueued, Timestamp: now}))
	require.NoError(t, logs.Append(ctx, calls.CallLogEntry{PhoneNumber: "+2", Status: calls.CallStatusFailed, Error: "invalid number", Timestamp: now}))

	dur := 17
	found, err := logs.Update(ctx, "CA1", func(e *calls.CallLogEntry) {
		e.Status = calls.CallStatusCompleted
		e.Duration = &dur
		e.UpdatedAt = &now
	})
	require.NoError(t, err)
	assert.True(t, found)

	got, err := logs.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, calls.CallStatusCompleted, got[0].Status)
	require.NotNil(t, got[0].Duration)
	assert.Equal(t, 17, *got[0].Duration)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "invalid number", got[1].Error)

	found, err = logs.Update(ctx, "CA404", func(e *calls.CallLogEntry) {})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, logs.ReplaceAll(ctx, nil))
	got, err = logs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONLogStore_RejectsUnknownStatus(t *testing.T) {
	s := newFileStore(t)
	raw := `[{"phone_number":"+1","status":"exploded","timestamp":"2026-03-01T12:00:00Z"}]`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, callLogsKey), []byte(raw), 0o644))

	_, err := NewJSONLogStore(s).List(context.Background())
	assert.True(t, errors.Is(err, ErrCorruptState), "expected ErrCorruptState, got %v", err)
}

func TestDocument_EmptyFileUsesDefault(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "empty.json"), []byte("  \n"), 0o644))

	doc := Document[map[string]string]{Blobs: s, Key: "empty.json", Default: func() map[string]string {
		return map[string]string{"voice": "alice"}
	}}
	got, err := doc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", got["voice"])
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func TestS3BlobStore_PrefixAndNotFound(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newS3BlobStore(fake, "dialer", "prod")

	_, err := s.Get(ctx, numbersKey)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	numbers := NewNumberStore(s)
	require.NoError(t, numbers.Replace(ctx, []string{"+15550001"}))
	assert.Contains(t, fake.objects, "dialer/prod/phone_numbers.json")

	got, err := numbers.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"+15550001"}, got)
}
