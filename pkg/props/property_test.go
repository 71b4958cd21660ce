package props

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func fromStrings(m map[string]string) Props {
	p := make(Props, len(m))
	for k, v := range m {
		p[k] = v
	}
	return p
}

func TestProps_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	flat := gen.MapOf(gen.AlphaString(), gen.AlphaString())

	properties.Property("wrapped and unwrapped shapes normalize equally", prop.ForAll(
		func(m map[string]string) bool {
			direct, err := Normalize(fromStrings(m))
			if err != nil {
				return false
			}
			wrapped, err := Normalize(Wrapped{Props: fromStrings(m)})
			if err != nil {
				return false
			}
			wrappedMap, err := Normalize(map[string]any{"props": map[string]any(fromStrings(m))})
			if err != nil {
				return false
			}
			return reflect.DeepEqual(direct, wrapped) && reflect.DeepEqual(direct, wrappedMap)
		},
		flat,
	))

	properties.Property("request layer wins on collision", prop.ForAll(
		func(static, request map[string]string) bool {
			merged := Merge(fromStrings(static), fromStrings(request))
			for k, v := range request {
				if merged[k] != v {
					return false
				}
			}
			for k, v := range static {
				if _, overridden := request[k]; !overridden && merged[k] != v {
					return false
				}
			}
			for k := range merged {
				_, inStatic := static[k]
				_, inRequest := request[k]
				if !inStatic && !inRequest {
					return false
				}
			}
			return true
		},
		flat, flat,
	))

	properties.Property("encode then decode reconstructs an equal mapping", prop.ForAll(
		func(m map[string]string) bool {
			p, err := Normalize(fromStrings(m))
			if err != nil {
				return false
			}
			data, err := Encode(p)
			if err != nil {
				return false
			}
			back, err := Decode(data)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(p, back)
		},
		flat,
	))

	properties.TestingRun(t)
}
