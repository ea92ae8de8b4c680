package transloadit

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"reflect"
	"strings"
	"unicode/utf8"
)

const (
	// MaxPayloadLength bounds the transloadit form field.
	MaxPayloadLength = 65536

	// Result step names configured in the assembly template.
	StepWatermarked = "watermarked"
	StepThumbnail   = "thumbnail"
)

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

var ErrSignatureMismatch = errors.New("transloadit: signature does not match payload")

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Notification is the raw form body of an assembly notification.
type Notification struct {
	Transloadit string `json:"transloadit"`
	Signature   string `json:"signature"`
}

// Result is a single file produced by an assembly step.
type Result struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Basename string `json:"basename"`
	Ext      string `json:"ext"`
	Mime     string `json:"mime"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	SSLURL   string `json:"ssl_url"`
}

// Assembly is the subset of the assembly status document this service reads.
type Assembly struct {
	AssemblyID string              `json:"assembly_id"`
	Ok         string              `json:"ok"`
	Error      string              `json:"error"`
	Results    map[string][]Result `json:"results"`
}

// Outputs are the validated file names the reconciler needs.
type Outputs struct {
	AssemblyID  string
	Watermarked string
	Thumbnail   string
}

// Decode validates the notification fields and the nested assembly document.
// Field errors are keyed by form field, with nested problems under
// "transloadit.<path>".
func (n Notification) Decode() (*Assembly, *Outputs, FieldErrors) {
	errs := FieldErrors{}

	switch {
	case strings.TrimSpace(n.Transloadit) == "":
		errs.Add("transloadit", msgBlank)
	case utf8.RuneCountInString(n.Transloadit) > MaxPayloadLength:
		errs.Add("transloadit", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxPayloadLength))
	}
	if strings.TrimSpace(n.Signature) == "" {
		errs.Add("signature", msgBlank)
	}
	if len(errs) > 0 {
		return nil, nil, errs
	}

	var a Assembly
	if err := json.Unmarshal([]byte(n.Transloadit), &a); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := "transloadit"
			if typeErr.Field != "" {
				field += "." + typeErr.Field
			}
			errs.Add(field, typeMessage(typeErr))
		} else {
			errs.Add("transloadit", "Value must be valid JSON.")
		}
		return nil, nil, errs
	}

	out := &Outputs{AssemblyID: a.AssemblyID}
	if a.AssemblyID == "" {
		errs.Add("transloadit.assembly_id", msgRequired)
	}
	if a.Results == nil {
		errs.Add("transloadit.results", msgRequired)
		return nil, nil, errs
	}
	out.Watermarked = firstName(a.Results, StepWatermarked, errs)
	out.Thumbnail = firstName(a.Results, StepThumbnail, errs)

	if len(errs) > 0 {
		return nil, nil, errs
	}
	return &a, out, nil
}

// typeMessage describes a well-formed document holding the wrong JSON type.
func typeMessage(e *json.UnmarshalTypeError) string {
	switch e.Type.Kind() {
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice:
		return fmt.Sprintf("Expected a list of items but got type %q.", e.Value)
	case reflect.Map, reflect.Struct:
		return fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", e.Value)
	default:
		return fmt.Sprintf("Invalid value of type %s.", e.Value)
	}
}

func firstName(results map[string][]Result, step string, errs FieldErrors) string {
	field := "transloadit.results." + step
	files, ok := results[step]
	if !ok {
		errs.Add(field, msgRequired)
		return ""
	}
	if len(files) == 0 {
		errs.Add(field, "Ensure this list has at least 1 element.")
		return ""
	}
	if files[0].Name == "" {
		errs.Add(field+".0.name", msgRequired)
		return ""
	}
	return files[0].Name
}

// Verify checks the notification signature against the raw transloadit text.
// Unprefixed 40-character signatures are HMAC-SHA1 (Transloadit's legacy
// notification scheme); otherwise the "<algo>:" prefix selects the hash.
func (n Notification) Verify(secret string) error {
	algo, sig := "sha1", strings.TrimSpace(n.Signature)
	if i := strings.IndexByte(sig, ':'); i >= 0 {
		algo, sig = strings.ToLower(sig[:i]), sig[i+1:]
	}

	var h func() hash.Hash
	switch algo {
	case "sha1":
		h = sha1.New
	case "sha256":
		h = sha256.New
	case "sha384":
		h = sha512.New384
	case "sha512":
		h = sha512.New
	default:
		return fmt.Errorf("transloadit: unsupported signature algorithm %q", algo)
	}

	got, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(h, []byte(secret))
	mac.Write([]byte(n.Transloadit))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}
