package validation

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/query"
)

// ErrorBody is the JSON shape of every failed API response.
type ErrorBody struct {
	OK        bool              `json:"ok"`
	ErrorKind orders.ErrorKind  `json:"error_kind"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// strictJSON is a gin binding that rejects body fields the target does not
// declare.
type strictJSON struct{}

var _ binding.Binding = strictJSON{}

func (strictJSON) Name() string { return "json" }

func (strictJSON) Bind(req *http.Request, obj interface{}) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(obj)
}

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindWith(out, strictJSON{}); err != nil {
		writeInvalid(c, "invalid request body: "+err.Error(), nil)
		return err
	}

	if err := v.Struct(out); err != nil {
		writeInvalid(c, "validation failed", validationErrorsToMap(err))
		return err
	}
	return nil
}

// BindBucketQuery parses and validates the bucket listing query string.
// Unknown parameters are rejected. On failure a 400 has been written.
func BindBucketQuery(c *gin.Context, v *validatorv10.Validate, defaultPageSize, maxPageSize int) (query.Request, error) {
	values := c.Request.URL.Query()
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if _, ok := bucketQueryKeys[key]; !ok {
			err := orders.InvalidArgumentf("unknown query parameter %q", key)
			writeInvalid(c, err.Error(), nil)
			return query.Request{}, err
		}
	}

	var q BucketQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeInvalid(c, "invalid query: "+err.Error(), nil)
		return query.Request{}, err
	}
	if err := v.Struct(q); err != nil {
		writeInvalid(c, "validation failed", validationErrorsToMap(err))
		return query.Request{}, err
	}

	req, err := q.ToRequest(defaultPageSize, maxPageSize)
	if err != nil {
		writeInvalid(c, err.Error(), nil)
		return query.Request{}, err
	}
	return req, nil
}

func writeInvalid(c *gin.Context, msg string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorBody{
		ErrorKind: orders.KindInvalidArgument,
		Message:   msg,
		Fields:    fields,
	})
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
