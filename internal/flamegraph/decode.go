package flamegraph

import (
	"encoding/json"
	"fmt"
	"io"
)

// ShapeError reports a response body that does not match the forest shape.
type ShapeError struct {
	Path string // JSON path of the offending field, e.g. "rootNodes[0].children[2].value"
	Msg  string
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return "malformed flame graph response: " + e.Msg
	}
	return fmt.Sprintf("malformed flame graph response at %s: %s", e.Path, e.Msg)
}

// wire types keep pointers so missing fields can be told apart from zeros.
type wireForest struct {
	RootNodes        *[]*wireNode `json:"rootNodes"`
	Height           *int         `json:"height"`
	TotalSampleCount *int64       `json:"totalSampleCount"`
}

type wireNode struct {
	Name     *string     `json:"name"`
	Value    *int64      `json:"value"`
	Children []*wireNode `json:"children"`
}

// DecodeForest reads and validates a flame-graph response body.
// Any deviation from the declared shape is returned as a *ShapeError.
func DecodeForest(r io.Reader) (Forest, error) {
	var w wireForest
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return Forest{}, &ShapeError{Msg: err.Error()}
	}

	if w.RootNodes == nil {
		return Forest{}, &ShapeError{Path: "rootNodes", Msg: "missing"}
	}
	if w.Height == nil {
		return Forest{}, &ShapeError{Path: "height", Msg: "missing"}
	}
	if *w.Height < 0 {
		return Forest{}, &ShapeError{Path: "height", Msg: "negative"}
	}
	if w.TotalSampleCount == nil {
		return Forest{}, &ShapeError{Path: "totalSampleCount", Msg: "missing"}
	}
	if *w.TotalSampleCount < 0 {
		return Forest{}, &ShapeError{Path: "totalSampleCount", Msg: "negative"}
	}

	roots, err := convertNodes(*w.RootNodes, "rootNodes")
	if err != nil {
		return Forest{}, err
	}

	return Forest{
		RootNodes:        roots,
		Height:           *w.Height,
		TotalSampleCount: *w.TotalSampleCount,
	}, nil
}

func convertNodes(in []*wireNode, path string) ([]*Node, error) {
	out := make([]*Node, 0, len(in))
	for i, wn := range in {
		p := fmt.Sprintf("%s[%d]", path, i)
		if wn == nil {
			return nil, &ShapeError{Path: p, Msg: "null node"}
		}
		if wn.Name == nil {
			return nil, &ShapeError{Path: p + ".name", Msg: "missing"}
		}
		if wn.Value == nil {
			return nil, &ShapeError{Path: p + ".value", Msg: "missing"}
		}
		if *wn.Value < 0 {
			return nil, &ShapeError{Path: p + ".value", Msg: "negative"}
		}

		var children []*Node
		if len(wn.Children) > 0 {
			var err error
			children, err = convertNodes(wn.Children, p+".children")
			if err != nil {
				return nil, err
			}
		}

		out = append(out, &Node{
			Name:     *wn.Name,
			Value:    *wn.Value,
			Children: children,
		})
	}
	return out, nil
}
