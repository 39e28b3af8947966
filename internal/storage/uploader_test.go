package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
)

type fakeS3 struct {
	objects map[string][]byte
	acl     map[string]types.ObjectCannedACL
	heads   int
	headErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, acl: map[string]types.ObjectCannedACL{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.acl[key] = in.ACL
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testUploader(client objectAPI) *Uploader {
	return newUploader(Config{
		Bucket:        "writory",
		PublicBaseURL: "https://cdn.example.com/",
		Prefix:        "/contest/",
		MaxBytes:      5 << 20,
	}, client)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		email, title string
		index        int
		ext, want    string
	}{
		{"asha.rao@example.com", "Monsoon Letters", 1, ".pdf", "asha_rao_monsoon_letters.pdf"},
		{"asha.rao@example.com", "Monsoon Letters", 2, ".pdf", "asha_rao_monsoon_letters_2.pdf"},
		{"ravi@example.com", "", 1, ".jpg", "ravi.jpg"},
		{"@example.com", "Dawn!", 0, ".txt", "participant_dawn.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, ObjectName(tt.email, tt.title, tt.index, tt.ext))
		})
	}
}

func TestEnsureFolderCreatesMarkerOnce(t *testing.T) {
	fake := newFakeS3()
	u := testUploader(fake)

	require.NoError(t, u.EnsureFolder(context.Background(), "Poems"))
	require.Contains(t, fake.objects, "contest/Poems/")

	require.NoError(t, u.EnsureFolder(context.Background(), "Poems"))
	require.Len(t, fake.objects, 1)
	require.Equal(t, 2, fake.heads)
}

func TestEnsureFolderSurfacesLookupErrors(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("access denied")

	err := testUploader(fake).EnsureFolder(context.Background(), "Poems")
	require.ErrorContains(t, err, "access denied")
	require.Empty(t, fake.objects)
}

func TestEnsureFolderAcceptsGenericNotFound(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}

	require.NoError(t, testUploader(fake).EnsureFolder(context.Background(), "Poems"))
	require.Contains(t, fake.objects, "contest/Poems/")
}

func TestUploadAndDeleteRoundTrip(t *testing.T) {
	fake := newFakeS3()
	u := testUploader(fake)

	url, err := u.Upload(context.Background(), File{
		Folder:   "Photos (Participants)",
		Group:    "8a4c1c1e",
		Email:    "asha@example.com",
		Title:    "Monsoon",
		Index:    1,
		Filename: "me.JPG",
		Data:     []byte("jpeg"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/contest/Photos%20%28Participants%29/8a4c1c1e/asha_monsoon.jpg", url)

	key := "contest/Photos (Participants)/8a4c1c1e/asha_monsoon.jpg"
	require.Equal(t, []byte("jpeg"), fake.objects[key])
	require.Equal(t, types.ObjectCannedACLPublicRead, fake.acl[key])

	require.NoError(t, u.Delete(context.Background(), url))
	require.NotContains(t, fake.objects, key)
}

func TestDeleteRejectsForeignURL(t *testing.T) {
	err := testUploader(newFakeS3()).Delete(context.Background(), "https://elsewhere.example.com/x.pdf")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	u := testUploader(newFakeS3())

	require.NoError(t, u.Validate(KindPoem, "poem.DOCX", 1024))
	require.NoError(t, u.Validate(KindPhoto, "face.webp", 1024))
	require.ErrorIs(t, u.Validate(KindPoem, "poem.exe", 1024), apperr.ErrValidation)
	require.ErrorIs(t, u.Validate(KindPhoto, "poem.pdf", 1024), apperr.ErrValidation)
	require.ErrorIs(t, u.Validate(KindPoem, "poem.pdf", 6<<20), apperr.ErrValidation)
	require.ErrorIs(t, u.Validate(KindPoem, "poem.pdf", 0), apperr.ErrValidation)
}
