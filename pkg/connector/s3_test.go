package connector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    map[string]string // key -> content type
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), puts: make(map[string]string)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.puts[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://entrada/2024/suscriptores.csv")
	require.NoError(t, err)
	assert.Equal(t, "entrada", bucket)
	assert.Equal(t, "2024/suscriptores.csv", key)

	for _, bad := range []string{"s3://bucket", "s3:///key.csv", "https://bucket/key.csv"} {
		_, _, err := ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestS3SourceLoad(t *testing.T) {
	client := newFakeS3()
	client.objects["entrada/detalles.csv"] = []byte("DNI\n1\n2\n")

	src, err := NewS3Source(client, "s3://entrada/detalles.csv", "detalles", zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://entrada/detalles.csv", src.Name())

	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "detalles", table.Name)
}

func TestS3SourceMissingObject(t *testing.T) {
	src, err := NewS3Source(newFakeS3(), "s3://entrada/nope.xlsx", "raw", zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestArtifactPublisher(t *testing.T) {
	dir := t.TempDir()
	files := []string{filepath.Join(dir, "validos.csv"), filepath.Join(dir, "reporte_validacion.pdf")}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte("data"), 0o644))
	}

	client := newFakeS3()
	pub, err := NewArtifactPublisher(client, "salidas", "/validaciones/", zap.NewNop())
	require.NoError(t, err)

	urls, err := pub.Publish(context.Background(), "run-1", files)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"s3://salidas/validaciones/run-1/validos.csv",
		"s3://salidas/validaciones/run-1/reporte_validacion.pdf",
	}, urls)
	assert.Equal(t, "text/csv; charset=utf-8", client.puts["salidas/validaciones/run-1/validos.csv"])
	assert.Equal(t, "application/pdf", client.puts["salidas/validaciones/run-1/reporte_validacion.pdf"])
	assert.Equal(t, []byte("data"), client.objects["salidas/validaciones/run-1/validos.csv"])
}

func TestArtifactPublisherUploadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validos.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	client := newFakeS3()
	client.putErr = errors.New("access denied")
	pub, err := NewArtifactPublisher(client, "salidas", "", zap.NewNop())
	require.NoError(t, err)

	_, err = pub.Publish(context.Background(), "run-1", []string{path})
	assert.Error(t, err)
}
