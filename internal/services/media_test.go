package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/config"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	presign *s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Expires != presignExpiry {
		return nil, errors.New("unexpected expiry")
	}
	f.presign = params
	return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/put", Method: "PUT"}, nil
}

func newTestMedia(fake *fakeS3, baseURL string) *MediaService {
	return newMediaService(fake, fake, config.AWSConfig{
		Region:        "ap-northeast-1",
		S3Bucket:      "silver-media",
		PublicBaseURL: baseURL,
		UploadPrefix:  "senior-web",
		MaxUploadMB:   1,
	})
}

func TestUploadStoresImage(t *testing.T) {
	fake := &fakeS3{}
	media := newTestMedia(fake, "https://cdn.example.com/")

	res, err := media.Upload(context.Background(), "u1", "me.JPEG", "image/jpeg", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Key, "senior-web/u1/"))
	assert.True(t, strings.HasSuffix(res.Key, ".jpeg"))
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)

	require.NotNil(t, fake.put)
	assert.Equal(t, "silver-media", *fake.put.Bucket)
	assert.Equal(t, res.Key, *fake.put.Key)
	assert.Equal(t, "image/jpeg", *fake.put.ContentType)
	assert.Equal(t, "hello", fake.body)
}

func TestUploadRejectsBadInput(t *testing.T) {
	media := newTestMedia(&fakeS3{}, "")
	ctx := context.Background()

	_, err := media.Upload(ctx, "u1", "doc.pdf", "application/pdf", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = media.Upload(ctx, "u1", "big.png", "image/png", media.MaxBytes()+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = media.Upload(ctx, "u1", "empty.png", "image/png", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = media.Upload(ctx, "", "a.png", "image/png", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestUploadPropagatesStoreFailure(t *testing.T) {
	media := newTestMedia(&fakeS3{err: errors.New("s3 down")}, "")

	_, err := media.Upload(context.Background(), "u1", "a.png", "image/png; charset=binary", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
}

func TestPresignUsesBucketURL(t *testing.T) {
	fake := &fakeS3{}
	media := newTestMedia(fake, "")

	res, err := media.Presign(context.Background(), "u1", PresignRequest{Filename: "avatar.png", ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, "https://signed.example.com/put", res.UploadURL)
	assert.Equal(t, 300, res.ExpiresIn)
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, "https://silver-media.s3.ap-northeast-1.amazonaws.com/"+res.Key, res.URL)
	require.NotNil(t, fake.presign)
	assert.Equal(t, res.Key, *fake.presign.Key)

	_, err = media.Presign(context.Background(), "u1", PresignRequest{Filename: "a.txt", ContentType: "text/plain"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
