package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpilet/mediagraph"
	"github.com/jpilet/mediagraph/types"
)

// GraphRouter exposes a graph's nodes, streams, pins, and properties.
func GraphRouter(graph *mediagraph.Graph) chi.Router {
	router := chi.NewRouter()

	router.Get("/nodeList", listNodes(graph))
	router.Get("/props", listGraphProperties(graph))
	router.Post("/props/{prop}", setGraphProperty(graph))
	router.Route("/node/{node}", func(r chi.Router) {
		r.Get("/", serveNode(graph))
		r.Get("/props", listNodeProperties(graph))
		r.Post("/props/{prop}", setNodeProperty(graph))
		r.Get("/stream/{stream}", listStreamProperties(graph))
		r.Post("/stream/{stream}/props/{prop}", setStreamProperty(graph))
		r.Get("/pin/{pin}", listPinProperties(graph))
		r.Post("/pin/{pin}/props/{prop}", setPinProperty(graph))
	})

	return router
}

// jsonValue converts a property value to the matching JSON type.
type jsonValue struct {
	result interface{}
}

func (v *jsonValue) Int(value int) bool        { v.result = value; return true }
func (v *jsonValue) Int64(value int64) bool    { v.result = value; return true }
func (v *jsonValue) Bool(value bool) bool      { v.result = value; return true }
func (v *jsonValue) Float(value float32) bool  { v.result = value; return true }
func (v *jsonValue) Double(value float64) bool { v.result = value; return true }
func (v *jsonValue) String(value string) bool  { v.result = value; return true }

var _ types.ConstVisitor = (*jsonValue)(nil)

func propertyModels(list *mediagraph.PropertyList) []PropertyModel {
	models := make([]PropertyModel, 0, list.NumProperties())
	for i := 0; i < list.NumProperties(); i++ {
		property := list.Property(i)
		var value jsonValue
		property.Apply(&value)
		models = append(models, PropertyModel{
			Name:     property.Name(),
			Type:     property.TypeName(),
			Value:    value.result,
			Writable: property.Writable(),
		})
	}
	return models
}

func listNodes(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, graph.NumNodes())
		for i := 0; i < graph.NumNodes(); i++ {
			if node := graph.Node(i); node != nil {
				names = append(names, node.Name())
			}
		}
		SendResponse(w, true, names, "")
	}
}

func listGraphProperties(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SendResponse(w, true, propertyModels(graph.Properties()), "")
	}
}

func requestNode(graph *mediagraph.Graph, w http.ResponseWriter, r *http.Request) mediagraph.NodeHandle {
	node := graph.GetNodeByName(chi.URLParam(r, "node"))
	if node == nil {
		SendResponseWithStatus(w, false, nil, "node not found", http.StatusNotFound)
	}
	return node
}

func serveNode(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}

		model := NodeModel{
			Name:    node.Name(),
			Running: node.IsRunning(),
			Output:  make([]StreamModel, 0, node.NumOutputStreams()),
			Input:   make([]PinModel, 0, node.NumInputPins()),
		}
		for i := 0; i < node.NumOutputStreams(); i++ {
			stream := node.OutputStream(i)
			model.Output = append(model.Output, StreamModel{
				Name: stream.StreamName(),
				Type: stream.TypeName(),
			})
		}
		for i := 0; i < node.NumInputPins(); i++ {
			pin := node.InputPin(i)
			pinModel := PinModel{Name: pin.Name(), Type: pin.TypeName()}
			if stream := pin.ConnectedStream(); stream != nil {
				connection := &ConnectionModel{Stream: stream.StreamName()}
				if owner := stream.Node(); owner != nil {
					connection.Node = owner.Name()
				}
				pinModel.Connection = connection
			}
			model.Input = append(model.Input, pinModel)
		}
		SendResponse(w, true, model, "")
	}
}

func listNodeProperties(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		SendResponse(w, true, propertyModels(node.Properties()), "")
	}
}

func listStreamProperties(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		stream := node.OutputStreamByName(chi.URLParam(r, "stream"))
		if stream == nil {
			SendResponseWithStatus(w, false, nil, "stream not found", http.StatusNotFound)
			return
		}
		SendResponse(w, true, propertyModels(stream.Properties()), "")
	}
}

func listPinProperties(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		pin := node.InputPinByName(chi.URLParam(r, "pin"))
		if pin == nil {
			SendResponseWithStatus(w, false, nil, "pin not found", http.StatusNotFound)
			return
		}
		SendResponse(w, true, propertyModels(pin.Properties()), "")
	}
}

func setProperty(list *mediagraph.PropertyList, w http.ResponseWriter, r *http.Request) {
	property := list.PropertyByName(chi.URLParam(r, "prop"))
	if property == nil {
		SendResponseWithStatus(w, false, nil, "property not found", http.StatusNotFound)
		return
	}
	var body SetPropertyModel
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		SendResponseWithStatus(w, false, nil, "invalid body", http.StatusBadRequest)
		return
	}
	if !mediagraph.SetPropertyFromString(property, body.Value) {
		SendResponseWithStatus(w, false, nil, "property rejected the value", http.StatusBadRequest)
		return
	}
	SendResponse(w, true, PropertyModel{
		Name:     property.Name(),
		Type:     property.TypeName(),
		Value:    mediagraph.PropertyValueString(property),
		Writable: property.Writable(),
	}, "")
}

func setGraphProperty(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setProperty(graph.Properties(), w, r)
	}
}

func setNodeProperty(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		setProperty(node.Properties(), w, r)
	}
}

func setStreamProperty(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		stream := node.OutputStreamByName(chi.URLParam(r, "stream"))
		if stream == nil {
			SendResponseWithStatus(w, false, nil, "stream not found", http.StatusNotFound)
			return
		}
		setProperty(stream.Properties(), w, r)
	}
}

func setPinProperty(graph *mediagraph.Graph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node := requestNode(graph, w, r)
		if node == nil {
			return
		}
		pin := node.InputPinByName(chi.URLParam(r, "pin"))
		if pin == nil {
			SendResponseWithStatus(w, false, nil, "pin not found", http.StatusNotFound)
			return
		}
		setProperty(pin.Properties(), w, r)
	}
}
