package collection

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codz-dev/uploader/pkg/classify"
)

type memBlob struct {
	id       string
	released int
}

func (b *memBlob) ID() string { return b.id }

func (b *memBlob) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte(b.id))), nil
}

func (b *memBlob) Release() error {
	b.released++
	return nil
}

func pending(name string) File {
	return NewPending(name, "application/pdf", 10, &memBlob{id: name})
}

func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestAddPendingMultiplePrependsBatch(t *testing.T) {
	c := New(false)

	assert.Nil(t, c.AddPending([]File{pending("A"), pending("B")}))
	assert.Nil(t, c.AddPending([]File{pending("C")}))

	assert.Equal(t, []string{"C", "A", "B"}, names(c.All()))
}

func TestAddPendingMultipleGoesInFrontOfRemote(t *testing.T) {
	c := New(false)
	c.Seed(NewRemote("1", "https://cdn/x/old.png", ""))

	c.AddPending([]File{pending("new1"), pending("new2")})

	assert.Equal(t, []string{"new1", "new2", "old.png"}, names(c.All()))
}

func TestAddPendingSingleReplaces(t *testing.T) {
	c := New(true)

	c.AddPending([]File{pending("A")})
	replaced := c.AddPending([]File{pending("B"), pending("C")})

	assert.Equal(t, []string{"B"}, names(c.All()))
	assert.Equal(t, []string{"A"}, names(replaced))
	assert.Equal(t, 1, c.Count())
}

func TestAddPendingEmptyBatch(t *testing.T) {
	c := New(true)
	c.AddPending([]File{pending("A")})

	assert.Nil(t, c.AddPending(nil))
	assert.Equal(t, []string{"A"}, names(c.All()))
}

func TestSeedSingleKeepsFirst(t *testing.T) {
	c := New(true)
	c.Seed(
		NewRemote("1", "https://cdn/a.png", ""),
		NewRemote("2", "https://cdn/b.png", ""),
	)
	assert.Equal(t, []string{"1"}, c.RemoteIdentifiers())
}

func TestRemoveAt(t *testing.T) {
	c := New(false)
	c.Seed(
		NewRemote("1", "https://cdn/keep.pdf", "https://app/delete/1"),
		NewRemote("2", "https://cdn/plain.pdf", ""),
	)
	c.AddPending([]File{pending("A")})

	f, ok := c.RemoveAt(0)
	require.True(t, ok)
	assert.Equal(t, "A", f.Name)

	_, ok = c.RemoveAt(0)
	assert.False(t, ok, "deletable remote stays until deletion succeeds")
	assert.Equal(t, 2, c.Count())

	f, ok = c.RemoveAt(1)
	require.True(t, ok)
	assert.Equal(t, "2", f.ID)

	_, ok = c.RemoveAt(5)
	assert.False(t, ok)
	_, ok = c.RemoveAt(-1)
	assert.False(t, ok)
}

func TestRemoveByKeySurvivesIndexDrift(t *testing.T) {
	c := New(false)
	remote := NewRemote("9", "https://cdn/r.pdf", "https://app/delete/9")
	c.Seed(remote)
	c.AddPending([]File{pending("A"), pending("B")})

	require.Equal(t, 2, c.IndexOf(remote.Key))
	c.RemoveAt(0)
	c.AddPending([]File{pending("C")})

	f, ok := c.Remove(remote.Key)
	require.True(t, ok)
	assert.Equal(t, "9", f.ID)
	assert.Equal(t, []string{"C", "B"}, names(c.All()))

	_, ok = c.Remove(remote.Key)
	assert.False(t, ok)
	assert.Equal(t, -1, c.IndexOf(remote.Key))
}

func TestResetReturnsEverything(t *testing.T) {
	c := New(false)
	c.Seed(NewRemote("1", "https://cdn/a.pdf", "https://app/d/1"))
	c.AddPending([]File{pending("A")})

	old := c.Reset()

	assert.Len(t, old, 2)
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.All())
}

func TestPendingAndRemoteViews(t *testing.T) {
	c := New(false)
	c.Seed(
		NewRemote("1", "https://cdn/a.pdf", ""),
		NewRemote("2", "https://cdn/b.pdf", ""),
	)
	c.AddPending([]File{pending("A"), pending("B")})

	assert.Equal(t, 2, c.PendingCount())
	assert.Equal(t, []string{"A", "B"}, names(c.PendingOnly()))
	assert.Equal(t, []string{"1", "2"}, c.RemoteIdentifiers())

	at, ok := c.At(2)
	require.True(t, ok)
	assert.Equal(t, "1", at.ID)
	_, ok = c.At(4)
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	c := New(false)
	c.AddPending([]File{pending("A")})

	all := c.All()
	all[0].Name = "changed"

	f, _ := c.At(0)
	assert.Equal(t, "A", f.Name)
}

func TestRemoteFileDerivedFields(t *testing.T) {
	f := NewRemote("7", "https://cdn.example.com/media/clip.mp4?v=2", "")

	assert.Equal(t, KindRemote, f.Kind)
	assert.Equal(t, "clip.mp4", f.Name)
	assert.Equal(t, "video/mp4", f.Type)
	assert.Zero(t, f.Size)
	assert.True(t, f.IsVideo())
	assert.False(t, f.IsImage())
	assert.False(t, f.Deletable())
	assert.False(t, f.Removable())
	assert.Equal(t, classify.VID, f.Label())
	assert.NotEmpty(t, f.Key)
}

func TestPendingFileFields(t *testing.T) {
	img := NewPending("photo.png", "image/png", 2048, &memBlob{id: "t1"})
	assert.True(t, img.IsPending())
	assert.True(t, img.IsImage())
	assert.True(t, img.Removable())
	assert.False(t, img.Deletable())
	assert.Equal(t, classify.IMG, img.Label())
	assert.Equal(t, "t1", img.Blob.ID())

	other := pending("x.pdf")
	assert.NotEqual(t, img.Key, other.Key)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Pending", KindPending.String())
	assert.Equal(t, "Remote", KindRemote.String())
	assert.Equal(t, "Unknown", Kind(9).String())
}
