package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"

	"recruitai/internal/apperr"
	"recruitai/internal/cv"
	"recruitai/internal/storage"
)

const (
	FieldJD             = "JD"
	FieldJobID          = "job_id"
	FieldJobTitle       = "job_title"
	FieldRecruiterName  = "recruiter_name"
	FieldRecruiterEmail = "recruiter_email"
	FieldCompany        = "company"
	FieldResumeCount    = "resume_count"

	resumePrefix = "resume_"
	textSuffix   = "_text"
)

// File is an uploaded document together with its extracted text. Files of
// a type the parser does not handle travel without text.
type File struct {
	Field     string
	Filename  string
	Data      []byte
	Text      string
	Extracted bool
}

// Submission is a validated scoring request, ready to be forwarded.
type Submission struct {
	Fields  map[string][]string
	JD      File
	Resumes []File
}

func (s *Submission) JobID() string {
	return s.value(FieldJobID)
}

func (s *Submission) value(key string) string {
	if v := s.Fields[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// resumeIndex parses the N of a resume_N field.
func resumeIndex(field string) (int, bool) {
	if !strings.HasPrefix(field, resumePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(field, resumePrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Prepare validates form and extracts the text of every document. Nothing is
// sent anywhere; any error is a client error naming the offending file.
// Recruiter fields missing from the form are taken from user when set.
func Prepare(ctx context.Context, parser *cv.Parser, form *multipart.Form, user *storage.User) (*Submission, error) {
	if form == nil {
		return nil, apperr.NewBadRequest("multipart form required")
	}

	jdHeaders := form.File[FieldJD]
	if len(jdHeaders) == 0 {
		return nil, apperr.NewBadRequest("JD file is required")
	}
	jd, err := extract(parser, FieldJD, jdHeaders[0])
	if err != nil {
		return nil, err
	}

	type indexed struct {
		idx    int
		field  string
		header *multipart.FileHeader
	}
	var found []indexed
	for field, headers := range form.File {
		idx, ok := resumeIndex(field)
		if !ok || len(headers) == 0 {
			continue
		}
		found = append(found, indexed{idx: idx, field: field, header: headers[0]})
	}
	if len(found) == 0 {
		return nil, apperr.NewBadRequest("at least one resume is required")
	}
	sort.Slice(found, func(i, j int) bool { return found[i].idx < found[j].idx })

	sub := &Submission{
		Fields: make(map[string][]string, len(form.Value)+3),
		JD:     *jd,
	}
	for _, f := range found {
		if err := ctx.Err(); err != nil {
			return nil, apperr.NewBadRequest("request cancelled before upload was processed").Wrap(err)
		}
		resume, err := extract(parser, f.field, f.header)
		if err != nil {
			return nil, err
		}
		sub.Resumes = append(sub.Resumes, *resume)
	}

	for k, v := range form.Value {
		sub.Fields[k] = append([]string(nil), v...)
	}
	if user != nil {
		fill := map[string]string{
			FieldRecruiterName:  user.Name,
			FieldRecruiterEmail: user.Email,
			FieldCompany:        user.Company,
		}
		for k, v := range fill {
			if sub.value(k) == "" && v != "" {
				sub.Fields[k] = []string{v}
			}
		}
	}
	return sub, nil
}

func extract(parser *cv.Parser, field string, fh *multipart.FileHeader) (*File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.NewBadRequest("could not read %s", fh.Filename).Wrap(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.NewBadRequest("could not read %s", fh.Filename).Wrap(err)
	}

	file := &File{Field: field, Filename: fh.Filename, Data: data}
	if !cv.SupportedType(fh.Filename) {
		return file, nil
	}
	doc, err := parser.ParseFile(fh.Filename, bytes.NewReader(data))
	if err != nil {
		return nil, apperr.NewBadRequest("could not extract text from %s: %v", fh.Filename, err).Wrap(err)
	}
	file.Text = doc.FullText
	file.Extracted = true
	return file, nil
}

// Encode builds the outbound multipart body: every text field (sorted), then
// each file under its original field name, its extracted text as
// <field>_text, and resume_count. Returns the body and its content type.
func (s *Submission) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	files := append([]File{s.JD}, s.Resumes...)
	generated := map[string]bool{FieldResumeCount: true}
	for _, f := range files {
		generated[f.Field+textSuffix] = true
	}

	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		if !generated[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range s.Fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
		if !f.Extracted {
			continue
		}
		if err := w.WriteField(f.Field+textSuffix, f.Text); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField(FieldResumeCount, strconv.Itoa(len(s.Resumes))); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
