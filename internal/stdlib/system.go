package stdlib

import (
	"github.com/google/uuid"

	"github.com/mfelsche/tremor-runtime/internal/extractor"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func systemFunctions() []Function {
	contextual := func(name string, fn func(ctx *Context) value.Value) Function {
		return Function{Module: "system", Name: name, Fn: func(ctx *Context, _ []value.Value) (value.Value, error) {
			if ctx == nil {
				ctx = &Context{}
			}
			return fn(ctx), nil
		}}
	}

	return []Function{
		contextual("hostname", func(ctx *Context) value.Value { return value.String(ctx.Hostname) }),
		contextual("instance", func(ctx *Context) value.Value { return value.String(ctx.Instance) }),
		contextual("ingest_ns", func(ctx *Context) value.Value { return value.Int(ctx.IngestNS) }),
		contextual("origin", func(ctx *Context) value.Value { return value.String(ctx.Origin) }),
		contextual("nanotime", func(ctx *Context) value.Value { return value.Int(ctx.now().UnixNano()) }),
		{Module: "uuid", Name: "v4", Fn: func(_ *Context, _ []value.Value) (value.Value, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return value.String(id.String()), nil
		}},
		pure("chash", "jump", 2, func(args []value.Value) (value.Value, error) {
			key, err := asString(args, 0)
			if err != nil {
				return nil, err
			}
			buckets, err := asInt(args, 1)
			if err != nil {
				return nil, err
			}
			if buckets <= 0 || buckets > 1<<31-1 {
				return nil, badArg(1, "a bucket count between 1 and 2147483647", args[1])
			}
			return value.Int(extractor.JumpHash(key, int32(buckets))), nil
		}),
	}
}
