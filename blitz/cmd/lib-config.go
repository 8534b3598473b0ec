// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

// ErrUnknownConfigKey means a key in the parameter file matches no flag.
var ErrUnknownConfigKey = errors.New("unknown key in parameter file")

// applyConfig sets flags from a TOML parameter file. Keys are flag names,
// optionally grouped in tables. Flags given in the command line are not
// overridden. It returns the number of flags set.
func applyConfig(cmd *cobra.Command, file string) (int, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return 0, errors.Wrapf(err, "reading parameter file: %s", file)
	}
	data, err := io.ReadAll(fh)
	fh.Close()
	if err != nil {
		return 0, errors.Wrapf(err, "reading parameter file: %s", file)
	}

	var m map[string]interface{}
	if err = toml.Unmarshal(data, &m); err != nil {
		return 0, errors.Wrapf(err, "parsing parameter file: %s", file)
	}

	kvs := make(map[string]interface{}, len(m))
	for k, v := range m {
		if table, ok := v.(map[string]interface{}); ok {
			for k2, v2 := range table {
				kvs[k2] = v2
			}
			continue
		}
		kvs[k] = v
	}

	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var n int
	for _, k := range keys {
		f := cmd.Flags().Lookup(k)
		if f == nil {
			return n, errors.Wrapf(ErrUnknownConfigKey, "%s: %s", file, k)
		}
		if f.Changed {
			continue
		}
		if err = cmd.Flags().Set(k, configValue(kvs[k])); err != nil {
			return n, errors.Wrapf(err, "%s: %s", file, k)
		}
		n++
	}
	return n, nil
}

func configValue(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		items := make([]string, len(list))
		for i, item := range list {
			items[i] = fmt.Sprint(item)
		}
		return strings.Join(items, ",")
	}
	return fmt.Sprint(v)
}
