package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"crudapp/app/forms"
	"crudapp/app/media"
	"crudapp/app/models"
	"crudapp/app/repositories"
	"crudapp/app/repositories/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pngUpload(t *testing.T, name string) *multipart.FileHeader {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 2, 2))))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

type blogFixture struct {
	svc   *BlogService
	store *repositories.Store
	db    *mock.DB
	media *media.LocalStorage
}

func newBlogFixture(t *testing.T) blogFixture {
	t.Helper()
	store, db := mock.NewStore()
	files, err := media.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return blogFixture{
		svc:   NewBlogService(store.Posts, store.Comments, files, zap.NewNop()),
		store: store,
		db:    db,
		media: files,
	}
}

func (f blogFixture) fileExists(t *testing.T, rel string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(f.media.Root(), filepath.FromSlash(rel)))
	return err == nil
}

func (f blogFixture) storedImages(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.media.Root(), media.BlogImagesDir))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func postInput(title string) forms.BlogPostInput {
	return forms.BlogPostInput{Title: title, Content: "content", Author: "Ann"}
}

func TestPersonService(t *testing.T) {
	ctx := context.Background()
	store, db := mock.NewStore()
	svc := NewPersonService(store.Persons, zap.NewNop())

	in := forms.PersonInput{FName: "Ada", LName: "Lovelace", Age: 36, Email: "ada@ex.org", City: "London"}
	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	in.City = "Paris"
	updated, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Paris", updated.City)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.City)

	_, err = svc.Update(ctx, 42, in)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 42), repositories.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	db.SetError(errors.New("disk on fire"))
	_, err = svc.List(ctx)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestBlogServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("without image", func(t *testing.T) {
		f := newBlogFixture(t)
		post, err := f.svc.Create(ctx, postInput("plain"))
		require.NoError(t, err)
		assert.Empty(t, post.Image)
		assert.False(t, post.PublishedDate.IsZero())
	})

	t.Run("with image", func(t *testing.T) {
		f := newBlogFixture(t)
		in := postInput("pic")
		in.Image = pngUpload(t, "cat.png")
		post, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Contains(t, post.Image, media.BlogImagesDir+"/")
		assert.True(t, f.fileExists(t, post.Image))
	})

	t.Run("failed insert removes the saved file", func(t *testing.T) {
		f := newBlogFixture(t)
		f.db.SetWriteError(errors.New("write failed"))
		in := postInput("pic")
		in.Image = pngUpload(t, "cat.png")
		_, err := f.svc.Create(ctx, in)
		require.Error(t, err)
		assert.Empty(t, f.storedImages(t))
	})
}

func TestBlogServiceUpdateImages(t *testing.T) {
	ctx := context.Background()
	f := newBlogFixture(t)

	in := postInput("pic")
	in.Image = pngUpload(t, "one.png")
	post, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	first := post.Image

	t.Run("no new file keeps the image", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, post.ID, postInput("renamed"))
		require.NoError(t, err)
		assert.Equal(t, first, updated.Image)
		assert.Equal(t, "renamed", updated.Title)
		assert.True(t, f.fileExists(t, first))
	})

	var second string
	t.Run("new file replaces the old one", func(t *testing.T) {
		in := postInput("renamed")
		in.Image = pngUpload(t, "two.png")
		updated, err := f.svc.Update(ctx, post.ID, in)
		require.NoError(t, err)
		second = updated.Image
		assert.NotEqual(t, first, second)
		assert.False(t, f.fileExists(t, first))
		assert.True(t, f.fileExists(t, second))
	})

	t.Run("failed update keeps the old file and drops the new one", func(t *testing.T) {
		f.db.SetWriteError(errors.New("write failed"))
		defer f.db.SetWriteError(nil)

		in := postInput("renamed")
		in.Image = pngUpload(t, "three.png")
		_, err := f.svc.Update(ctx, post.ID, in)
		require.Error(t, err)
		assert.Equal(t, []string{filepath.Base(second)}, f.storedImages(t))
	})

	t.Run("clear removes the image", func(t *testing.T) {
		in := postInput("renamed")
		in.ClearImage = true
		updated, err := f.svc.Update(ctx, post.ID, in)
		require.NoError(t, err)
		assert.Empty(t, updated.Image)
		assert.Empty(t, f.storedImages(t))
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.svc.Update(ctx, 999, postInput("x"))
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestBlogServiceComments(t *testing.T) {
	ctx := context.Background()
	f := newBlogFixture(t)

	a, err := f.svc.Create(ctx, postInput("a"))
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, postInput("b"))
	require.NoError(t, err)

	comment := forms.CommentInput{Name: "Bob", Email: "bob@example.com", Content: "nice"}
	for i := 0; i < 2; i++ {
		saved, err := f.svc.AddComment(ctx, a, comment)
		require.NoError(t, err)
		assert.Equal(t, a.ID, saved.BlogPostID)
	}
	assert.Len(t, a.Comments, 2)

	_, err = f.svc.AddComment(ctx, &models.BlogPost{ID: 999}, comment)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = f.svc.AddComment(ctx, &models.BlogPost{}, comment)
	assert.Error(t, err, "unsaved post")

	summaries, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries[0].CommentCount)
	assert.Equal(t, 0, summaries[1].CommentCount)
	assert.Equal(t, b.ID, summaries[1].Post.ID)

	detail, err := f.svc.GetWithComments(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 2)
}

func TestBlogServiceDelete(t *testing.T) {
	ctx := context.Background()
	f := newBlogFixture(t)

	in := postInput("pic")
	in.Image = pngUpload(t, "cat.png")
	post, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, post, forms.CommentInput{Name: "x", Email: "x@y.zz", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, post.ID))
	assert.False(t, f.fileExists(t, post.Image))

	n, err := f.store.Comments.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.svc.Delete(ctx, post.ID), repositories.ErrNotFound)
}
