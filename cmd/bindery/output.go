package main

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/export"
	"github.com/jackzampolin/bindery/internal/library"
	"github.com/jackzampolin/bindery/internal/recognition"
)

// Text renderings for api.Output. JSON and YAML use the field tags.

type resultOutput struct {
	*recognition.Result
}

func (r resultOutput) Text() string {
	var b strings.Builder
	for i, reg := range r.Regions() {
		fmt.Fprintf(&b, "%d\t%.3f\t%s\n", i+1, reg.Confidence, reg.Text)
	}
	return b.String()
}

type bindReport struct {
	Image      string `json:"image,omitempty" yaml:"image,omitempty"`
	TextPath   string `json:"text,omitempty" yaml:"text,omitempty"`
	ImageError string `json:"image_error,omitempty" yaml:"image_error,omitempty"`
	TextError  string `json:"text_error,omitempty" yaml:"text_error,omitempty"`
}

func newBindReport(out *archive.Outcome) bindReport {
	var r bindReport
	if out.ImageErr != nil {
		r.ImageError = out.ImageErr.Error()
	} else {
		r.Image = out.Page.ImagePath
	}
	if out.TextErr != nil {
		r.TextError = out.TextErr.Error()
	} else {
		r.TextPath = out.Page.TextPath
	}
	return r
}

func (r bindReport) Text() string {
	var b strings.Builder
	if r.Image != "" {
		fmt.Fprintf(&b, "image saved: %s\n", r.Image)
	}
	if r.TextPath != "" {
		fmt.Fprintf(&b, "text saved: %s\n", r.TextPath)
	}
	return b.String()
}

type bookList []library.Book

func (l bookList) Text() string {
	var b strings.Builder
	for _, book := range l {
		b.WriteString(book.Name)
		b.WriteByte('\n')
	}
	return b.String()
}

type bookOutput struct {
	library.Book `yaml:",inline"`
}

func (o bookOutput) Text() string {
	return fmt.Sprintf("%s (%s) %s", o.Name, o.Location, o.Path)
}

type transcriptOutput struct {
	Book       string `json:"book" yaml:"book"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Transcript string `json:"transcript" yaml:"transcript"`
}

func (o transcriptOutput) Text() string { return o.Transcript }

type reportOutput export.Report

func (r reportOutput) Text() string {
	return fmt.Sprintf("exported %s: %d pages to %s", r.Book, r.Pages, r.File)
}
