package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// nationalIDPattern accepts RUT style ids: "11111111-1", "12.345.678-K".
var nationalIDPattern = regexp.MustCompile(`^\d{1,2}(\.?\d{3}){2}-[\dkK]$`)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator and makes
// error messages use json field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range map[string]validator.Func{
			"objectid":   validObjectID,
			"nationalid": validNationalID,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

func validObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

func validNationalID(fl validator.FieldLevel) bool {
	return nationalIDPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}
