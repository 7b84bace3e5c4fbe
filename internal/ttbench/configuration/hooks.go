package configuration

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeHooks are the mapstructure hooks needed to decode a Config.
var DecodeHooks = []mapstructure.DecodeHookFunc{
	InitStepsHookFunc(),
	ModeHookFunc(),
}

func InitStepsHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != reflect.TypeOf(InitSteps{}) {
			return data, nil
		}
		return ParseInitSteps(data.(string))
	}
}

func ModeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(ModeIterations) {
			return data, nil
		}
		return Mode(strings.ToLower(data.(string))), nil
	}
}
