package gib

import (
	"github.com/go-playground/validator/v10"
)

// Status is the registry's overall verdict for a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "basarisiz"
)

// Result is one line of the registry's answer.
type Result struct {
	Serial   string `json:"esu_seri_no" validate:"min=3"`
	Sequence int    `json:"sira_no" validate:"gte=1"`
	Code     string `json:"kod" validate:"len=4,number"`
	Message  string `json:"mesaj"`
}

// Response is the parsed body of every ESU endpoint.
type Response struct {
	Status  Status   `json:"durum" validate:"oneof=success basarisiz"`
	Results []Result `json:"sonuc" validate:"min=1,dive"`
}

// OK reports whether the registry accepted the request.
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// Message returns the first result's message. It is the outcome text
// recorded for a record in batch reports.
func (r *Response) Message() string {
	if len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Message
}

var responseValidator = validator.New()

func (r *Response) validate() error {
	return responseValidator.Struct(r)
}
