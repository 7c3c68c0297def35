package forms

import (
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"crudapp/app/models"
)

const (
	msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgEmptyFile    = "The submitted file is empty."
	msgFileAndClear = "Please either submit a file or check the clear checkbox, not both."
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// BlogPostInput is the validated content of a blog post form. Image is nil
// when no file was uploaded.
type BlogPostInput struct {
	Title      string                `form:"title" validate:"required,max=200"`
	Content    string                `form:"content" validate:"required"`
	Author     string                `form:"author" validate:"required,max=100"`
	Image      *multipart.FileHeader `form:"image" validate:"-"`
	ClearImage bool                  `form:"image-clear" validate:"-"`
}

// ParseBlogPost binds submitted values and an optional uploaded image.
func ParseBlogPost(values url.Values, upload *multipart.FileHeader) Result[BlogPostInput] {
	errs := FieldErrors{}
	in := BlogPostInput{
		Title:      cleanString(values, "title"),
		Content:    cleanString(values, "content"),
		Author:     cleanString(values, "author"),
		Image:      upload,
		ClearImage: parseBool(values, "image-clear"),
	}

	if upload != nil {
		if in.ClearImage {
			errs.Add("image", msgFileAndClear)
		} else if msg := checkImage(upload); msg != "" {
			errs.Add("image", msg)
		}
	}

	check(in, errs)
	return newResult(in, values, errs)
}

// checkImage verifies the upload is a decodable raster image with an
// accepted extension and at most models.BlogImageMaxPixels pixels. It
// returns an error message, empty when valid.
func checkImage(fh *multipart.FileHeader) string {
	if fh.Size == 0 {
		return msgEmptyFile
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		allowed := make([]string, 0, len(imageExtensions))
		for e := range imageExtensions {
			allowed = append(allowed, strings.TrimPrefix(e, "."))
		}
		sort.Strings(allowed)
		return fmt.Sprintf("File extension %q is not allowed. Allowed extensions are: %s.",
			strings.TrimPrefix(ext, "."), strings.Join(allowed, ", "))
	}

	f, err := fh.Open()
	if err != nil {
		return msgInvalidImage
	}
	defer f.Close()

	// imaging registers the decoders DecodeConfig relies on.
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return msgInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > models.BlogImageMaxPixels {
		return msgInvalidImage
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return msgInvalidImage
	}
	if _, err := imaging.Decode(f); err != nil {
		return msgInvalidImage
	}
	return ""
}

// Apply copies the text fields onto p. Image handling is left to the
// caller since it involves the media store.
func (in BlogPostInput) Apply(p *models.BlogPost) {
	p.Title = in.Title
	p.Content = in.Content
	p.Author = in.Author
}

// BlogPostForm returns a form prefilled from an existing post.
func BlogPostForm(p *models.BlogPost) Form {
	f := Empty()
	f.Values.Set("title", p.Title)
	f.Values.Set("content", p.Content)
	f.Values.Set("author", p.Author)
	return f
}
