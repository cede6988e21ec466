package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/photobridge/pkg/fallback"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestPersist_PutsObject(t *testing.T) {
	fake := &fakePutter{}
	s := New(fake, Config{Bucket: "media", KeyPrefix: "fallback/"})

	loc, err := s.Persist(context.Background(), "image-1", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "s3://media/fallback/image-1", loc)
	assert.Equal(t, "jpeg", fake.objects["media/fallback/image-1"])
}

func TestPersist_BuffersNonSeekable(t *testing.T) {
	fake := &fakePutter{}
	s := New(fake, Config{Bucket: "media"})

	// io.MultiReader hides the Seek method of its parts
	r := io.MultiReader(strings.NewReader("ab"), strings.NewReader("cd"))
	_, err := s.Persist(context.Background(), "video-1", r)
	require.NoError(t, err)
	assert.Equal(t, "abcd", fake.objects["media/video-1"])
}

func TestPersist_Errors(t *testing.T) {
	fake := &fakePutter{err: errors.New("access denied")}
	s := New(fake, Config{Bucket: "media"})

	_, err := s.Persist(context.Background(), "image-1", strings.NewReader("x"))
	assert.ErrorContains(t, err, "access denied")

	_, err = s.Persist(context.Background(), "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, fallback.ErrInvalidName)

	require.NoError(t, s.Close())
	_, err = s.Persist(context.Background(), "image-1", strings.NewReader("x"))
	assert.ErrorIs(t, err, fallback.ErrSinkClosed)
}

func TestNewFromConfig_AgainstLocalEndpoint(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotBody = string(body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := NewFromConfig(context.Background(), Config{
		Bucket:          "media",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		ForcePathStyle:  true,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	_, err = s.Persist(context.Background(), "image-9", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "/media/image-9", gotPath)
	assert.Contains(t, gotBody, "data")
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	_, err := NewFromConfig(context.Background(), Config{})
	assert.Error(t, err)
}
