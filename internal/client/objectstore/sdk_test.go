package objectstore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fieldsync/internal/filex"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	putBody []byte
	etag    string
	putErr  error
	getBody string
	getErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.putBody = b
	return &s3.PutObjectOutput{ETag: aws.String(f.etag)}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.getBody))}, nil
}

func withFakeS3(t *testing.T, fake *fakeS3) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	var applied s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		require.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&applied)
		}
		return fake
	}
	return &applied
}

func md5Hex(t *testing.T, path string) string {
	t.Helper()
	sum, err := filex.FileMD5(path)
	require.NoError(t, err)
	return hex.EncodeToString(sum)
}

func sdkConfig() Config {
	return Config{Endpoint: "http://127.0.0.1:9000", Bucket: "flow", AccessKey: "a", SecretKey: "s", Region: "eu-west-1"}
}

func TestSDKGateway_PutPublicMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	obj, err := Describe(path, MediaKey("p.png"), true)
	require.NoError(t, err)

	sum := md5Hex(t, path)
	fake := &fakeS3{etag: `"` + sum + `"`}
	opts := withFakeS3(t, fake)

	g, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
	require.NoError(t, err)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))

	res, err := g.Put(context.Background(), obj)
	require.NoError(t, err)
	assert.Equal(t, sum, res.ETag)

	require.Len(t, fake.puts, 1)
	in := fake.puts[0]
	assert.Equal(t, "flow", aws.ToString(in.Bucket))
	assert.Equal(t, "images/p.png", aws.ToString(in.Key))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.Equal(t, obj.MD5, aws.ToString(in.ContentMD5))
	assert.Equal(t, types.ObjectCannedACLPublicRead, in.ACL)
	assert.Equal(t, "png", string(fake.putBody))
}

func TestSDKGateway_PutPrivateHasNoACL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o600))
	obj, err := Describe(path, ArchiveKey("u.zip"), false)
	require.NoError(t, err)

	sum := md5Hex(t, path)
	fake := &fakeS3{etag: sum}
	withFakeS3(t, fake)

	g, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
	require.NoError(t, err)

	_, err = g.Put(context.Background(), obj)
	require.NoError(t, err)
	assert.Empty(t, fake.puts[0].ACL)
}

func TestSDKGateway_PutErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o600))
	obj, err := Describe(path, ArchiveKey("u.zip"), false)
	require.NoError(t, err)

	t.Run("transport", func(t *testing.T) {
		withFakeS3(t, &fakeS3{putErr: errors.New("dial tcp: refused")})
		g, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
		require.NoError(t, err)
		_, err = g.Put(context.Background(), obj)
		require.Error(t, err)
	})

	t.Run("etag mismatch", func(t *testing.T) {
		withFakeS3(t, &fakeS3{etag: `"deadbeef"`})
		g, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
		require.NoError(t, err)
		_, err = g.Put(context.Background(), obj)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

func TestSDKGateway_ConfigLoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
	require.Error(t, err)
}

func TestSDKGateway_Get(t *testing.T) {
	withFakeS3(t, &fakeS3{getBody: "form-xml"})
	g, err := NewSDKGateway(context.Background(), sdkConfig(), nil)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "f.xml")
	require.NoError(t, g.Get(context.Background(), "forms/f.xml", dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "form-xml", string(b))
}

func TestNew_SelectsSigner(t *testing.T) {
	g, err := New(context.Background(), SignerLegacy, sdkConfig(), nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &LegacyGateway{}, g)

	withFakeS3(t, &fakeS3{})
	g, err = New(context.Background(), SignerSDK, sdkConfig(), nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &SDKGateway{}, g)

	_, err = New(context.Background(), "v5", sdkConfig(), nil, nil, nil)
	require.Error(t, err)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.zip":  TypeZip,
		"a.JPG":  TypeJPEG,
		"a.jpeg": TypeJPEG,
		"a.png":  TypePNG,
		"a.mp4":  TypeMP4,
		"a.bin":  TypeOctet,
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}
