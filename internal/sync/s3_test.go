package sync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store/storetest"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Destination_Write(t *testing.T) {
	st := storetest.New()
	st.PutChunk(&model.Chunk{ID: "ch-1", Key: "a"})
	st.PutChunk(&model.Chunk{ID: "ch-2", Key: "b"})
	st.PutInlineChunk(&model.InlineChunk{ID: "ic-1", Owner: model.OwnerRef{Type: "page", ID: "1"}, Key: "x"})
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatal(err)
	}

	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "backups", key: "chunks/backup.jsonl"}
	if err := dest.Write(context.Background(), buf.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}

	if aws.ToString(fake.input.Bucket) != "backups" || aws.ToString(fake.input.Key) != "chunks/backup.jsonl" {
		t.Errorf("bucket/key = %q/%q", aws.ToString(fake.input.Bucket), aws.ToString(fake.input.Key))
	}
	if aws.ToString(fake.input.ContentType) != "application/x-ndjson" {
		t.Errorf("content type = %q", aws.ToString(fake.input.ContentType))
	}
	if !bytes.Equal(fake.body, buf.Bytes()) {
		t.Errorf("body = %q", fake.body)
	}
	md := fake.input.Metadata
	if md["chunk-count"] != "2" || md["inline-chunk-count"] != "1" || md["exported-at"] == "" {
		t.Errorf("metadata = %v", md)
	}
}

func TestS3Destination_NoHeaderNoMetadata(t *testing.T) {
	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "b", key: "k"}
	if err := dest.Write(context.Background(), []byte("raw")); err != nil {
		t.Fatal(err)
	}
	if fake.input.Metadata != nil {
		t.Errorf("metadata = %v, want none", fake.input.Metadata)
	}
}

func TestS3Destination_WriteError(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	dest := &S3Destination{client: fake, bucket: "b", key: "k"}
	err := dest.Write(context.Background(), []byte("x"))
	if !errors.Is(err, fake.err) {
		t.Fatalf("err = %v, want wrapped %v", err, fake.err)
	}
}

func TestS3Destination_Name(t *testing.T) {
	dest := &S3Destination{bucket: "backups", key: "chunks/backup.jsonl"}
	if got := dest.Name(); got != "s3://backups/chunks/backup.jsonl" {
		t.Errorf("Name() = %q", got)
	}
}
