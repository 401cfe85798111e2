package fileref

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stackvity/fsaccess/internal/blob"
)

func TestPath(t *testing.T) {
	f := blob.NewFile("b.txt", []byte("b"), "text/plain", time.Time{})

	assert.Equal(t, "b.txt", New(f, nil).Path())
	assert.Equal(t, "root/sub/b.txt", New(f.WithRelativePath("root/sub/b.txt"), nil).Path())
}

func TestFromHost(t *testing.T) {
	files := FromHost([]*blob.File{
		blob.NewFile("a.txt", nil, "", time.Time{}),
		blob.NewFile("b.txt", nil, "", time.Time{}),
	})

	assert.Len(t, files, 2)
	for _, f := range files {
		assert.Nil(t, f.Handle)
	}
	assert.Equal(t, "a.txt", files[0].Name)
}
