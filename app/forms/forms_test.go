package forms

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudapp/app/models"
)

func validPersonValues() url.Values {
	return url.Values{
		"fname": {"Ada"},
		"lname": {"Lovelace"},
		"age":   {"36"},
		"email": {"ada@ex.org"},
		"city":  {"London"},
	}
}

func TestParsePerson(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(v url.Values)
		wantField string
		wantMsg   string
	}{
		{name: "valid person", mutate: func(v url.Values) {}},
		{name: "surrounding whitespace is trimmed", mutate: func(v url.Values) { v.Set("fname", "  Ada  ") }},
		{
			name:      "non numeric age",
			mutate:    func(v url.Values) { v.Set("age", "thirty") },
			wantField: "age",
			wantMsg:   "Enter a whole number.",
		},
		{
			name:      "missing age",
			mutate:    func(v url.Values) { v.Del("age") },
			wantField: "age",
			wantMsg:   "This field is required.",
		},
		{
			name:      "age out of range",
			mutate:    func(v url.Values) { v.Set("age", "3000000000") },
			wantField: "age",
			wantMsg:   "Ensure this value is less than or equal to 2147483647.",
		},
		{
			name:      "first name too long",
			mutate:    func(v url.Values) { v.Set("fname", "Alexandrina") },
			wantField: "fname",
			wantMsg:   "Ensure this value has at most 10 characters (it has 11).",
		},
		{
			name:      "invalid email",
			mutate:    func(v url.Values) { v.Set("email", "not-an-email") },
			wantField: "email",
			wantMsg:   "Enter a valid email address.",
		},
		{
			name:      "email too long",
			mutate:    func(v url.Values) { v.Set("email", "someone@example.co.uk") },
			wantField: "email",
			wantMsg:   "Ensure this value has at most 20 characters (it has 21).",
		},
		{
			name:      "blank city",
			mutate:    func(v url.Values) { v.Set("city", "   ") },
			wantField: "city",
			wantMsg:   "This field is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validPersonValues()
			tt.mutate(values)

			res := ParsePerson(values)
			if tt.wantField == "" {
				assert.True(t, res.Valid(), "unexpected errors: %v", res.Form.Errors)
				assert.Equal(t, "Ada", res.Value.FName)
				assert.Equal(t, 36, res.Value.Age)
				return
			}
			assert.False(t, res.Valid())
			assert.Equal(t, []string{tt.wantMsg}, res.Form.ErrorsFor(tt.wantField))
			// submitted values are kept for re-rendering
			assert.Equal(t, values.Get(tt.wantField), res.Form.Value(tt.wantField))
		})
	}
}

func TestPersonApplyAndForm(t *testing.T) {
	res := ParsePerson(validPersonValues())
	require.True(t, res.Valid())

	p := &models.Person{ID: 4}
	res.Value.Apply(p)
	assert.Equal(t, 4, p.ID)
	assert.Equal(t, "Lovelace", p.LName)
	assert.Equal(t, "London", p.City)

	f := PersonForm(p)
	assert.Equal(t, "36", f.Value("age"))
	assert.False(t, f.HasErrors())
}

// fileHeader builds a multipart file header the way net/http would for an
// uploaded file.
func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validPostValues() url.Values {
	return url.Values{
		"title":   {"Hello"},
		"content": {"First post body"},
		"author":  {"Ann"},
	}
}

func TestParseBlogPost(t *testing.T) {
	t.Run("valid without image", func(t *testing.T) {
		res := ParseBlogPost(validPostValues(), nil)
		assert.True(t, res.Valid())
		assert.Nil(t, res.Value.Image)
		assert.Equal(t, "Hello", res.Value.Title)
	})

	t.Run("valid png", func(t *testing.T) {
		res := ParseBlogPost(validPostValues(), fileHeader(t, "pic.PNG", pngBytes(t)))
		assert.True(t, res.Valid(), "unexpected errors: %v", res.Form.Errors)
		assert.NotNil(t, res.Value.Image)
	})

	t.Run("missing required fields", func(t *testing.T) {
		res := ParseBlogPost(url.Values{}, nil)
		assert.False(t, res.Valid())
		for _, field := range []string{"title", "content", "author"} {
			assert.Equal(t, []string{"This field is required."}, res.Form.ErrorsFor(field))
		}
	})

	t.Run("title too long", func(t *testing.T) {
		values := validPostValues()
		values.Set("title", strings.Repeat("t", 201))
		res := ParseBlogPost(values, nil)
		assert.Equal(t, []string{"Ensure this value has at most 200 characters (it has 201)."}, res.Form.ErrorsFor("title"))
	})

	t.Run("corrupt image", func(t *testing.T) {
		res := ParseBlogPost(validPostValues(), fileHeader(t, "pic.png", []byte("definitely not a png")))
		assert.Equal(t, []string{msgInvalidImage}, res.Form.ErrorsFor("image"))
	})

	t.Run("disallowed extension", func(t *testing.T) {
		res := ParseBlogPost(validPostValues(), fileHeader(t, "notes.txt", pngBytes(t)))
		require.Len(t, res.Form.ErrorsFor("image"), 1)
		assert.Contains(t, res.Form.ErrorsFor("image")[0], `File extension "txt" is not allowed.`)
	})

	t.Run("too many pixels", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8000, 5001))))
		res := ParseBlogPost(validPostValues(), fileHeader(t, "huge.png", buf.Bytes()))
		assert.Equal(t, []string{msgInvalidImage}, res.Form.ErrorsFor("image"))
	})

	t.Run("empty file", func(t *testing.T) {
		res := ParseBlogPost(validPostValues(), fileHeader(t, "pic.png", nil))
		assert.Equal(t, []string{msgEmptyFile}, res.Form.ErrorsFor("image"))
	})

	t.Run("file and clear together", func(t *testing.T) {
		values := validPostValues()
		values.Set("image-clear", "on")
		res := ParseBlogPost(values, fileHeader(t, "pic.png", pngBytes(t)))
		assert.Equal(t, []string{msgFileAndClear}, res.Form.ErrorsFor("image"))
	})

	t.Run("clear only", func(t *testing.T) {
		values := validPostValues()
		values.Set("image-clear", "on")
		res := ParseBlogPost(values, nil)
		assert.True(t, res.Valid())
		assert.True(t, res.Value.ClearImage)
	})
}

func TestParseComment(t *testing.T) {
	res := ParseComment(url.Values{
		"name":    {"Bob"},
		"email":   {"bob@example.com"},
		"content": {"Great read"},
	})
	require.True(t, res.Valid())

	c := res.Value.Comment()
	assert.Zero(t, c.BlogPostID)
	assert.Equal(t, "Bob", c.Name)

	res = ParseComment(url.Values{"name": {"Bob"}, "email": {"bob"}})
	assert.False(t, res.Valid())
	assert.Equal(t, []string{"Enter a valid email address."}, res.Form.ErrorsFor("email"))
	assert.Equal(t, []string{"This field is required."}, res.Form.ErrorsFor("content"))
	assert.Empty(t, res.Form.ErrorsFor("name"))
}

func TestFieldErrors(t *testing.T) {
	errs := FieldErrors{}
	assert.False(t, errs.Has("x"))
	errs.Add("x", "bad")
	errs.Add("x", "worse")
	assert.True(t, errs.Has("x"))
	assert.Equal(t, []string{"bad", "worse"}, errs.Get("x"))
}
