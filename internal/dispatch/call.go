package dispatch

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/hoot/pkg/reflectx"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/tool"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// buildArgList binds JSON arguments to the function's parameters by name.
// context.Context parameters receive ctx, absent optional parameters receive
// their zero value.
func buildArgList(ctx context.Context, arguments string, def tool.Definition) ([]reflect.Value, error) {
	args := gjson.Parse(arguments)
	params := def.Params()

	known := make(map[string]struct{}, len(params))
	for _, p := range params {
		known[p.Name] = struct{}{}
	}
	var unexpected []string
	args.ForEach(func(key, _ gjson.Result) bool {
		if _, ok := known[key.String()]; !ok {
			unexpected = append(unexpected, key.String())
		}
		return true
	})
	if len(unexpected) > 0 {
		return nil, &tool.ParamError{Param: strings.Join(unexpected, ", "), Reason: "unexpected parameter"}
	}

	ftype := reflect.TypeOf(def.Function)
	callArgs := make([]reflect.Value, ftype.NumIn())
	for i := range ftype.NumIn() {
		if reflectx.IsContext(ftype.In(i)) {
			callArgs[i] = reflect.ValueOf(ctx)
		}
	}

	for _, p := range params {
		val := args.Get(gjson.Escape(p.Name))
		if !val.Exists() {
			if p.Required {
				return nil, &tool.ParamError{Param: p.Name, Reason: "missing required parameter"}
			}
			callArgs[p.Index] = reflect.Zero(p.Type)
			continue
		}

		target := reflect.New(p.Type)
		if err := json.Unmarshal([]byte(val.Raw), target.Interface()); err != nil {
			return nil, &tool.ParamError{Param: p.Name, Reason: fmt.Sprintf("cannot use %s as %s", val.Raw, p.Type)}
		}
		callArgs[p.Index] = target.Elem()
	}
	return callArgs, nil
}

// callFunction invokes fn and splits its results into a value and an error.
// A panic inside fn is reported as an execution failure.
func callFunction(fn any, args []reflect.Value) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrToolFailed, r)
		}
	}()

	ftype := reflect.TypeOf(fn)
	results := reflect.ValueOf(fn).Call(args)

	if reflectx.ReturnsError(ftype) {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if e, ok := asError(last); ok {
			return nil, e
		}
	}
	if len(results) == 0 || !results[0].IsValid() {
		return nil, nil
	}
	return results[0].Interface(), nil
}

func asError(v reflect.Value) (error, bool) {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil, false
		}
	}
	e, ok := v.Interface().(error)
	return e, ok
}

// render produces the text a tool result contributes to the transcript.
func render(value any) (string, error) {
	switch vtpe := value.(type) {
	case nil:
		return "", nil
	case string:
		return vtpe, nil
	case []byte:
		return string(vtpe), nil
	case time.Time:
		return vtpe.Format(time.RFC3339), nil
	case bool:
		return strconv.FormatBool(vtpe), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(vtpe).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(vtpe).Uint(), 10), nil
	case float32:
		return strconv.FormatFloat(float64(vtpe), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(vtpe, 'f', -1, 64), nil
	case encoding.TextMarshaler:
		b, err := vtpe.MarshalText()
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return vtpe.String(), nil
	default:
		b, err := json.Marshal(vtpe)
		if err != nil {
			slog.Error("Error marshalling function return", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	}
}
