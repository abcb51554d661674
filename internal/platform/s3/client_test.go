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
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient:   &http.Client{Transport: &http.Transport{}},
	})

	return &Client{s3: client}
}

func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func errorBody(code string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>` + code + `</Code>
  <Message>` + code + `</Message>
</Error>`
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), Options{
		Endpoint:  "https://minio.example.com",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
		PathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestPutAndGetObject(t *testing.T) {
	var mu sync.Mutex
	objects := map[string][]byte{}

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				xmlResponse(w, http.StatusNotFound, errorBody("NoSuchKey"))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
		}
	}))

	ctx := context.Background()
	require.NoError(t, client.PutObject(ctx, "state", "records/ha_group/prod.json", []byte(`{"a":1}`)))

	data, err := client.GetObject(ctx, "state", "records/ha_group/prod.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = client.GetObject(ctx, "state", "records/ha_group/missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetObject_OtherError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xmlResponse(w, http.StatusForbidden, errorBody("AccessDenied"))
	}))

	_, err := client.GetObject(context.Background(), "state", "key")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "failed to get object key from bucket state")
}

func TestListObjects_FollowsContinuation(t *testing.T) {
	var prefixes []string
	var mu sync.Mutex

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		prefixes = append(prefixes, r.URL.Query().Get("prefix"))
		mu.Unlock()

		if r.URL.Query().Get("continuation-token") == "" {
			xmlResponse(w, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>state</Name>
  <Prefix>records/</Prefix>
  <KeyCount>1</KeyCount>
  <MaxKeys>1</MaxKeys>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>page2</NextContinuationToken>
  <Contents><Key>records/a.json</Key><Size>10</Size></Contents>
</ListBucketResult>`)
			return
		}
		xmlResponse(w, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>state</Name>
  <Prefix>records/</Prefix>
  <KeyCount>1</KeyCount>
  <MaxKeys>1</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>records/b.json</Key><Size>10</Size></Contents>
</ListBucketResult>`)
	}))

	keys, err := client.ListObjects(context.Background(), "state", "records/")
	require.NoError(t, err)
	assert.Equal(t, []string{"records/a.json", "records/b.json"}, keys)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range prefixes {
		assert.Equal(t, "records/", p)
	}
}

func TestDeleteObject_MissingIsNotAnError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xmlResponse(w, http.StatusNotFound, errorBody("NoSuchKey"))
	}))

	assert.NoError(t, client.DeleteObject(context.Background(), "state", "gone.json"))
}

func TestBucketExists(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr string
	}{
		{name: "exists", status: http.StatusOK, want: true},
		{name: "missing", status: http.StatusNotFound, want: false},
		{name: "forbidden", status: http.StatusForbidden, wantErr: "failed to check bucket state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			got, err := client.BucketExists(context.Background(), "state")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotFoundError_Nil(t *testing.T) {
	assert.False(t, isNotFoundError(nil))
	assert.False(t, isNotFoundError(errors.New("boom")))
}
