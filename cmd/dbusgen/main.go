package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/stratis-storage/go-dbus-client-gen/internal/codegen"
	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
)

func main() {
	kingpinApp := kingpin.New("dbusgen", "Generates Go bindings for GetManagedObjects tables from D-Bus introspection XML")
	xmlPaths := kingpinApp.Flag("xml", "Introspection XML file or directory (repeatable)").Required().Strings()
	packageName := kingpinApp.Flag("package", "Package name of the generated source").Required().String()
	only := kingpinApp.Flag("interface", "Generate only the named interfaces (repeatable)").Strings()
	output := kingpinApp.Flag("output", "Output file (defaults to stdout)").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	source, err := generate(*xmlPaths, *only, *packageName)
	kingpinApp.FatalIfError(err, "generation failed")

	if *output == "" {
		_, err = os.Stdout.Write(source)
		kingpinApp.FatalIfError(err, "write to stdout failed")
		return
	}

	err = os.WriteFile(*output, source, 0o644)
	kingpinApp.FatalIfError(err, "write %s failed", *output)
}

// generate loads introspection data from the given paths and renders Go
// bindings for the selected interfaces.
func generate(paths, only []string, packageName string) ([]byte, error) {
	specs := introspect.NewRegistry()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			err = specs.LoadDir(path)
		} else {
			err = specs.LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
	}

	names := specs.Names()
	if len(only) > 0 {
		names = nil
		for _, name := range only {
			if _, ok := specs.Lookup(name); !ok {
				return nil, fmt.Errorf("interface %q not found in the given XML", name)
			}
			names = append(names, name)
		}
	}

	interfaces := make([]introspect.Interface, 0, len(names))
	for _, name := range names {
		iface, _ := specs.Lookup(name)
		interfaces = append(interfaces, iface)
	}

	var buf bytes.Buffer
	if err := codegen.Generate(&buf, codegen.Options{
		PackageName: packageName,
		Interfaces:  interfaces,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
