package wave64

// Option configures a Reader or a Writer.
type Option func(*options)

type options struct {
	standardSizes bool
}

// WithStandardSizes selects the conventional RIFF size meaning, where the
// RIFF and ds64 file size fields count every byte after the first eight.
//
// A Reader built with it accepts both that and the total-length form, and pads
// odd-sized unknown chunks to an even boundary when skipping them. A Writer
// built with it emits the conventional values.
func WithStandardSizes() Option {
	return func(o *options) {
		o.standardSizes = true
	}
}

func buildOptions(opts []Option) options {
	var o options

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
