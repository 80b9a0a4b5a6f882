package runner

import (
	"errors"
	"fmt"
	"io"

	"github.com/mfelsche/tremor-runtime/internal/config"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/yamlvalue"
	"github.com/mfelsche/tremor-runtime/pkg/script"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

type decoder interface {
	Decode() (value.Value, error)
}

func checkInputFormat(format string) error {
	switch format {
	case "", config.InputJSON, config.InputYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidInputFormat, format)
	}
}

func newDecoder(format string, r io.Reader) (decoder, error) {
	switch format {
	case "", config.InputJSON:
		return value.NewDecoder(r), nil
	case config.InputYAML:
		return yamlvalue.NewDecoder(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidInputFormat, format)
	}
}

type encoder interface {
	encode(w io.Writer, res result) error
}

func newEncoder(format string, withMeta bool) (encoder, error) {
	switch format {
	case "", config.OutputText:
		return textEncoder{withMeta: withMeta}, nil
	case config.OutputJSON:
		return jsonEncoder{withMeta: withMeta}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidOutputFormat, format)
	}
}

// textEncoder prints one line per emitted event: the value as JSON, prefixed
// with the port when it is not the default one and followed by the metadata
// when requested. Drops and errors print nothing.
type textEncoder struct {
	withMeta bool
}

func (e textEncoder) encode(w io.Writer, res result) error {
	if res.outcome.Kind != script.Emit {
		return nil
	}
	line, err := value.ToJSON(res.outcome.Value)
	if err != nil {
		return err
	}
	if res.outcome.Port != script.DefaultPort {
		line = append([]byte(res.outcome.Port+"\t"), line...)
	}
	if e.withMeta {
		meta, err := value.ToJSON(metaOf(res.outcome))
		if err != nil {
			return err
		}
		line = append(append(line, '\t'), meta...)
	}
	_, err = w.Write(append(line, '\n'))
	return err
}

// jsonEncoder prints one JSON object per outcome, including drops and errors.
type jsonEncoder struct {
	withMeta bool
}

func (e jsonEncoder) encode(w io.Writer, res result) error {
	out := res.outcome
	record := value.ObjectOf(
		value.Field{Key: "input", Value: value.String(res.input)},
		value.Field{Key: "index", Value: value.Int(res.index)},
		value.Field{Key: "kind", Value: value.String(out.Kind.String())},
	)
	switch out.Kind {
	case script.Emit:
		record.Set("port", value.String(out.Port))
		record.Set("value", out.Value)
	case script.Drop:
		if out.Reason != nil {
			record.Set("reason", out.Reason)
		}
	default:
		record.Set("error", errorRecord(out.Err))
	}
	if e.withMeta && out.Kind != script.Error {
		record.Set("meta", metaOf(out))
	}
	if out.Exports != nil && out.Exports.Len() > 0 {
		record.Set("exports", out.Exports)
	}

	line, err := value.ToJSON(record)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}

func metaOf(out script.Outcome) value.Value {
	if out.Meta == nil {
		return value.NewObject(0)
	}
	return out.Meta
}

func errorRecord(err error) *value.Object {
	var diagnostic diagnostics.Diagnostic
	if !errors.As(err, &diagnostic) {
		return value.ObjectOf(value.Field{Key: "message", Value: value.String(fmt.Sprint(err))})
	}
	span := diagnostic.Span()
	return value.ObjectOf(
		value.Field{Key: "code", Value: value.String(diagnostic.Code())},
		value.Field{Key: "message", Value: value.String(diagnostic.Message())},
		value.Field{Key: "line", Value: value.Int(span.Start.Line)},
		value.Field{Key: "column", Value: value.Int(span.Start.Column)},
	)
}
