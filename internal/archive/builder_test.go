package archive

import (
	"crypto/md5"
	"encoding/json"
	"hash/adler32"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInstance() (*models.SurveyInstance, []*models.Response) {
	inst := &models.SurveyInstance{
		ID:            4,
		UUID:          "5c1f7a0e-0000-4000-8000-000000000001",
		FormID:        "1001",
		FormVersion:   "3.0",
		RecordID:      "aaaa-bbbb",
		Submitter:     "enumerator",
		SubmittedDate: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	responses := []*models.Response{
		{InstanceID: 4, QuestionID: "q1", Answer: "yes", Type: models.ResponseTypeValue},
		{InstanceID: 4, QuestionID: "q2", Iteration: 0, Answer: "3", Type: models.ResponseTypeValue},
		{InstanceID: 4, QuestionID: "q2", Iteration: 1, Answer: "5", Type: models.ResponseTypeValue},
		{InstanceID: 4, QuestionID: "photo", Answer: "/media/p.jpg", Type: models.ResponseTypeImage},
	}
	return inst, responses
}

func TestBuild_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, nil)
	inst, responses := sampleInstance()

	want, err := JSONSerializer.Serialize(inst, responses)
	require.NoError(t, err)

	res, err := b.Build(inst, responses)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, inst.UUID+".zip"), res.Path)
	assert.Equal(t, inst.UUID+".zip", res.Filename())

	got, err := Extract(res.Path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var doc Document
	require.NoError(t, json.Unmarshal(got, &doc))
	assert.Equal(t, inst.UUID, doc.UUID)
	require.Len(t, doc.Responses["q2"], 2)
	assert.Equal(t, "5", doc.Responses["q2"][1].Value)
}

func TestBuild_DigestsMatchFile(t *testing.T) {
	b := NewBuilder(t.TempDir(), nil)
	inst, responses := sampleInstance()

	res, err := b.Build(inst, responses)
	require.NoError(t, err)

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	assert.Equal(t, adler32.Checksum(raw), res.Checksum)
	want := md5.Sum(raw)
	assert.Equal(t, want[:], res.MD5)
	assert.Len(t, res.MD5Hex(), 32)
	assert.Len(t, res.MD5Base64(), 24)
}

func TestBuild_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, nil)
	inst, responses := sampleInstance()

	_, err := b.Build(inst, responses)
	require.NoError(t, err)
	_, err = b.Build(inst, responses)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inst.UUID+".zip", entries[0].Name())
}

func TestBuild_CustomSerializer(t *testing.T) {
	b := NewBuilder(t.TempDir(), SerializerFunc(func(inst *models.SurveyInstance, _ []*models.Response) ([]byte, error) {
		return []byte("uuid\t" + inst.UUID), nil
	}))
	inst, _ := sampleInstance()

	res, err := b.Build(inst, nil)
	require.NoError(t, err)

	got, err := Extract(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "uuid\t"+inst.UUID, string(got))
}

func TestBuild_Errors(t *testing.T) {
	inst, responses := sampleInstance()

	_, err := NewBuilder(filepath.Join(t.TempDir(), "missing"), nil).Build(inst, responses)
	require.Error(t, err, "missing output directory")

	_, err = NewBuilder(t.TempDir(), nil).Build(&models.SurveyInstance{}, nil)
	require.Error(t, err, "instance without uuid")

	if runtime.GOOS != "windows" && os.Geteuid() != 0 {
		ro := t.TempDir()
		require.NoError(t, os.Chmod(ro, 0o500))
		t.Cleanup(func() { _ = os.Chmod(ro, 0o700) })
		_, err = NewBuilder(ro, nil).Build(inst, responses)
		require.Error(t, err, "read-only directory")
	}
}

func TestExtract_RejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "not.zip")
	require.NoError(t, os.WriteFile(p, []byte("plain text"), 0o600))

	_, err := Extract(p)
	require.ErrorIs(t, err, ErrInvalidArchive)
}
