package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrMalformedResponse = errors.New("malformed response body")

type Response struct {
	Results interface{}     `json:"results,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
	Errors  []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a ResponseError) Error() string {
	return a.Message
}

type StatusError struct {
	Code int
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", s.Code, http.StatusText(s.Code))
}

type Envelope struct {
	Results json.RawMessage `json:"results"`
	Error   *ResponseError  `json:"error"`
	Errors  []ResponseError `json:"errors"`
}

func (e Envelope) Message() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	for _, re := range e.Errors {
		if re.Message != "" {
			return re.Message
		}
	}
	return ""
}

func Respond(w http.ResponseWriter, r *http.Request, code int, data interface{}, errs ...error) {
	var respErrs []ResponseError

	if len(errs) > 0 {
		for _, err := range errs {
			log.WithFields(log.Fields{
				"error": err,
				"path":  r.URL.Path,
			}).Error("error while serving request")

			respErrs = append(respErrs, ResponseError{Message: err.Error()})
		}
	}

	resp := Response{
		Results: data,
		Errors:  respErrs,
	}

	writeResponse(w, r, code, &resp)
}

func RespondError(w http.ResponseWriter, r *http.Request, code int, err error) {
	log.WithFields(log.Fields{
		"error": err,
		"path":  r.URL.Path,
	}).Error("error while serving request")

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable && code != http.StatusNotImplemented {
		code = http.StatusInternalServerError
		err = errors.New(http.StatusText(http.StatusInternalServerError))
	}

	resp := Response{
		Error: &ResponseError{
			Message: err.Error(),
		},
	}

	writeResponse(w, r, code, &resp)
}

func writeResponse(w http.ResponseWriter, r *http.Request, code int, resp *Response) {
	if code == http.StatusNoContent || resp == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}

	b, err := json.Marshal(resp)
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if _, err := w.Write(b); err != nil {
		log.WithError(errors.Wrap(err, "write response body")).Warn("respond")
	}
}

// Decode reads a backend reply. A structured message on a non-2xx reply comes
// back as *ResponseError; a non-2xx reply without one as *StatusError. On
// success the results member is unmarshalled into out when out is non-nil.
func Decode(resp *http.Response, out interface{}) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if len(b) == 0 {
		if ok {
			return nil
		}
		return &StatusError{Code: resp.StatusCode}
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		if !ok {
			return &StatusError{Code: resp.StatusCode}
		}
		return errors.Wrap(ErrMalformedResponse, err.Error())
	}

	if !ok {
		if msg := env.Message(); msg != "" {
			return &ResponseError{Message: msg, Status: resp.StatusCode}
		}
		return &StatusError{Code: resp.StatusCode}
	}

	if out == nil || len(env.Results) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Results, out); err != nil {
		return errors.Wrap(ErrMalformedResponse, err.Error())
	}

	return nil
}
