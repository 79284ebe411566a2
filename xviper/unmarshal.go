package xviper

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type unmarshaler interface {
	Unmarshal(interface{}, ...viper.DecoderConfigOption) error
}

// InvalidUnmarshaler is an unmarshaler that always returns the same error, which may be nil
type InvalidUnmarshaler struct {
	Err error
}

func (iu InvalidUnmarshaler) Unmarshal(interface{}, ...viper.DecoderConfigOption) error {
	return iu.Err
}

// Unmarshal decodes the configuration into each of the given values, in order, stopping
// at the first error.  The standard decode hooks are applied.
func Unmarshal(u unmarshaler, v ...interface{}) error {
	var err error
	for i := 0; err == nil && i < len(v); i++ {
		err = u.Unmarshal(v[i], DecodeHook())
	}

	return err
}

// MustUnmarshal is like Unmarshal, except that it panics on any error
func MustUnmarshal(u unmarshaler, v ...interface{}) {
	if err := Unmarshal(u, v...); err != nil {
		panic(err)
	}
}

// DecodeHook is the standard set of mapstructure hooks: durations and comma separated slices
// are parsed from strings, and strings are coerced into the numeric and boolean kinds.
func DecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			CastHook(),
		),
	)
}

// CastHook is a mapstructure hook that uses spf13/cast to coerce strings, which is how environment
// variables always arrive, into numeric and boolean fields.
func CastHook() mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data interface{}) (interface{}, error) {
		if from != reflect.String {
			return data, nil
		}

		switch to {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cast.ToInt64E(data)

		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return cast.ToUint64E(data)

		case reflect.Float32, reflect.Float64:
			return cast.ToFloat64E(data)

		case reflect.Bool:
			return cast.ToBoolE(data)

		default:
			return data, nil
		}
	}
}

type defaulter interface {
	SetDefault(string, interface{})
}

type Defaults map[string]interface{}

func ApplyDefaults(d defaulter, v Defaults) {
	for key, value := range v {
		d.SetDefault(key, value)
	}
}
