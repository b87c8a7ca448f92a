// serializer 在 json、xml、yml、msgpack 等格式之间转换数据。
//
//	serializer --from json --to yml < in.json > out.yml
//	serializer --config ./serializer.yaml -f xml -t json -i in.xml -o out.json
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/garden-serializer/application"
	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) (err error) {
	fs := pflag.NewFlagSet("serializer", pflag.ContinueOnError)
	var (
		configPath = fs.StringP("config", "c", "", "Path to config file (default ./serializer.yaml, env "+application.ConfigPathEnv+")")
		from       = fs.StringP("from", "f", visitor.FormatJSON, "Input format")
		to         = fs.StringP("to", "t", visitor.FormatYAML, "Output format")
		in         = fs.StringP("in", "i", "", "Input file (default stdin)")
		out        = fs.StringP("out", "o", "", "Output file (default stdout)")
		list       = fs.Bool("list", false, "List supported formats and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := application.New()
	if err := app.Run(*configPath); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if *list {
		ser, err := app.Factory().Serializer()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "serialization:   %s\n", strings.Join(ser.SerializationFormats(), ", "))
		fmt.Fprintf(stdout, "deserialization: %s\n", strings.Join(ser.DeserializationFormats(), ", "))
		return nil
	}

	r := stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer f.Close()
		r = f
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close output")
			}
		}()
		w = f
	}

	return app.Convert(r, w, *from, *to)
}
