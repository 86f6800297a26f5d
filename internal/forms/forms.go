// Package forms validates post and comment submissions.
package forms

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"yatube/internal/models"
)

// Field error messages, in the site language.
const (
	MsgRequired     = "Обязательное поле."
	MsgInvalidImage = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	MsgInvalidGroup = "Выберите корректный вариант. Вашего варианта нет среди допустимых значений."
	MsgImageTooBig  = "Файл слишком большой."
)

// DefaultMaxUpload bounds the request body of post submissions.
const DefaultMaxUpload = 10 << 20

// MaxImagePixels is the largest width*height accepted for an upload. Larger
// images are rejected from their header, before any pixel data is decoded.
const MaxImagePixels = 2 * 89478485

// ErrImageTooLarge reports an image whose declared dimensions exceed
// MaxImagePixels.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Errors maps a field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Get returns the first message for field, or "".
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Upload is a decoded, validated image file.
type Upload struct {
	Filename string
	Format   string
	Data     []byte
}

// PostForm carries the fields of the new and edit post forms.
type PostForm struct {
	Text       string
	GroupID    *int
	Image      *Upload
	ClearImage bool
	Groups     []models.Group
	Errors     Errors
}

// NewPostForm returns an unbound form, optionally pre-filled from p.
func NewPostForm(groups []models.Group, p *models.Post) *PostForm {
	f := &PostForm{Groups: groups, Errors: Errors{}}
	if p != nil {
		f.Text = p.Text
		f.GroupID = p.GroupID
	}
	return f
}

// Selected reports whether group id is the form's current choice.
func (f *PostForm) Selected(id int) bool {
	return f.GroupID != nil && *f.GroupID == id
}

// ParsePost binds and validates a post submission. The request may be
// multipart (with an image) or urlencoded.
func ParsePost(r *http.Request, groups []models.Group) *PostForm {
	f := &PostForm{Groups: groups, Errors: Errors{}}

	var fileErr error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		fileErr = r.ParseMultipartForm(1 << 20)
		if r.MultipartForm != nil {
			// Parts larger than the memory limit spill to temp files.
			defer r.MultipartForm.RemoveAll()
		}
	} else {
		fileErr = r.ParseForm()
	}
	if bodyTooLarge(fileErr) {
		f.Errors.Add("image", MsgImageTooBig)
		return f
	}

	f.Text = r.FormValue("text")
	if strings.TrimSpace(f.Text) == "" {
		f.Errors.Add("text", MsgRequired)
	}

	if raw := strings.TrimSpace(r.FormValue("group")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || !hasGroup(groups, id) {
			f.Errors.Add("group", MsgInvalidGroup)
		} else {
			f.GroupID = &id
		}
	}

	f.ClearImage = r.FormValue("image-clear") != ""

	if r.MultipartForm != nil {
		if headers := r.MultipartForm.File["image"]; len(headers) > 0 && headers[0].Size > 0 {
			upload, err := readImage(headers[0])
			if err != nil {
				f.Errors.Add("image", MsgInvalidImage)
			} else {
				f.Image = upload
			}
		}
	}
	return f
}

// Valid reports whether the form has no errors.
func (f *PostForm) Valid() bool {
	return len(f.Errors) == 0
}

// bodyTooLarge detects http.MaxBytesReader overflows, which the multipart
// reader does not always wrap.
func bodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var tooBig *http.MaxBytesError
	return errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large")
}

func hasGroup(groups []models.Group, id int) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func readImage(fh *multipart.FileHeader) (*Upload, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	format, err := ValidateImage(data)
	if err != nil {
		return nil, err
	}
	return &Upload{Filename: fh.Filename, Format: format, Data: data}, nil
}

// ValidateImage checks the declared dimensions of data against
// MaxImagePixels, then fully decodes it and returns the image format name.
func ValidateImage(data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}

// CommentForm carries the comment text.
type CommentForm struct {
	Text   string
	Errors Errors
}

func ParseComment(r *http.Request) *CommentForm {
	f := &CommentForm{Text: r.FormValue("text"), Errors: Errors{}}
	if strings.TrimSpace(f.Text) == "" {
		f.Errors.Add("text", MsgRequired)
	}
	return f
}

func (f *CommentForm) Valid() bool {
	return len(f.Errors) == 0
}
