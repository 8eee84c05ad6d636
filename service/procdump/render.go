package procdump

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/viant/procsched/model/proc"
	"gopkg.in/yaml.v3"
)

// Format names a listing encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat resolves a format name; empty means Text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "", Text:
		return Text, nil
	case JSON, YAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == YAML {
		return ".yaml"
	}
	if f == JSON {
		return ".json"
	}
	return ".txt"
}

var columns = []string{"name", "pid", "state", "queue", "wait_time", "confidence", "burst_time", "consecutive_run", "arrival"}

// Render writes the process listing as aligned text columns.
func Render(w io.Writer, infos []proc.Info) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, info := range infos {
		state := info.State.String()
		if info.Killed {
			state += "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			info.Name, info.PID, state, info.Level, info.WaitingTicks,
			info.Confidence, info.BurstEstimate, info.ConsecutiveRuns, info.ArrivalTick)
	}
	return tw.Flush()
}

// Encode renders dump in format.
func Encode(format Format, dump *Dump) ([]byte, error) {
	switch format {
	case JSON:
		return json.MarshalIndent(dump, "", "  ")
	case YAML:
		return yaml.Marshal(dump)
	case Text, "":
		builder := &strings.Builder{}
		if err := Render(builder, dump.Processes); err != nil {
			return nil, err
		}
		return []byte(builder.String()), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// Decode parses a JSON or YAML dump.
func Decode(format Format, data []byte, dump *Dump) error {
	switch format {
	case JSON:
		return json.Unmarshal(data, dump)
	case YAML:
		return yaml.Unmarshal(data, dump)
	}
	return fmt.Errorf("cannot decode %s dump", format)
}
