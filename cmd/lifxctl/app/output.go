package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/danmuck/lifxctl/internal/protocol"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

// dump writes every addressable field of msg in wire order.
func dump(w io.Writer, msg *protocol.Message, format string) error {
	tree, err := msg.Walk()
	if err != nil {
		return err
	}
	switch format {
	case formatText, "":
		return dumpText(w, tree, msg.Size())
	case formatYAML:
		out, err := yaml.Marshal(treeNode(tree))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown format %q (want text or yaml)", format)
	}
}

func dumpText(w io.Writer, tree protocol.Tree, size int) error {
	name := tree.Name
	if name == "" {
		name = "unregistered"
	}
	fmt.Fprintf(w, "type %d %s (%d bytes)\n", tree.Type, name, size)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "header:")
	for _, fv := range tree.Header {
		fmt.Fprintf(tw, "  %s\t%s\n", fv.Name, formatValue(fv.Value))
	}
	if len(tree.Payload) > 0 {
		fmt.Fprintln(tw, "payload:")
		for _, fv := range tree.Payload {
			fmt.Fprintf(tw, "  %s\t%s\n", fv.Name, formatValue(fv.Value))
		}
	}
	return tw.Flush()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []byte:
		return hex.EncodeToString(t)
	case string:
		return strconv.Quote(t)
	default:
		return fmt.Sprint(t)
	}
}

// treeNode builds an ordered YAML mapping; a Go map would sort the keys.
func treeNode(tree protocol.Tree) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(root, "type", strconv.FormatUint(uint64(tree.Type), 10), "!!int")
	addScalar(root, "name", tree.Name, "!!str")
	root.Content = append(root.Content, keyNode("header"), fieldsNode(tree.Header))
	if len(tree.Payload) > 0 {
		root.Content = append(root.Content, keyNode("payload"), fieldsNode(tree.Payload))
	}
	return root
}

func fieldsNode(fields []protocol.FieldValue) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, fv := range fields {
		switch t := fv.Value.(type) {
		case []byte:
			addScalar(n, fv.Name, hex.EncodeToString(t), "!!str")
		case string:
			addScalar(n, fv.Name, t, "!!str")
		case float32:
			addScalar(n, fv.Name, strconv.FormatFloat(float64(t), 'g', -1, 32), "!!float")
		default:
			addScalar(n, fv.Name, fmt.Sprint(t), "!!int")
		}
	}
	return n
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func addScalar(n *yaml.Node, key, value, tag string) {
	n.Content = append(n.Content, keyNode(key), &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value})
}
