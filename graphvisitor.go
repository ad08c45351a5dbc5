package mediagraph

// GraphVisitor receives callbacks while VisitGraph walks a graph. Embed
// NopGraphVisitor to implement only the hooks you care about.
type GraphVisitor interface {
	// OnNode is called once per node.
	OnNode(node NodeHandle)

	// OnStream is called for every output stream of a node.
	OnStream(node NodeHandle, stream NamedStream)

	// OnPin is called for every input pin of a node.
	OnPin(node NodeHandle, pin NamedPin)

	// OnProperty is called for every property. For a graph property node,
	// stream, and pin are nil; for a node property stream and pin are nil;
	// for a stream or pin property the respective owner is set.
	OnProperty(node NodeHandle, stream NamedStream, pin NamedPin, property NamedProperty)
}

// NopGraphVisitor implements GraphVisitor with empty hooks.
type NopGraphVisitor struct{}

func (NopGraphVisitor) OnNode(NodeHandle)                                           {}
func (NopGraphVisitor) OnStream(NodeHandle, NamedStream)                            {}
func (NopGraphVisitor) OnPin(NodeHandle, NamedPin)                                  {}
func (NopGraphVisitor) OnProperty(NodeHandle, NamedStream, NamedPin, NamedProperty) {}

// VisitGraph walks graph in name order: graph properties first, then for
// each node its properties, its streams with their properties, and its pins
// with their properties.
func VisitGraph(graph *Graph, visitor GraphVisitor) {
	props := graph.Properties()
	for i := 0; i < props.NumProperties(); i++ {
		visitor.OnProperty(nil, nil, nil, props.Property(i))
	}

	for i := 0; i < graph.NumNodes(); i++ {
		node := graph.Node(i)
		if node == nil {
			// The graph shrank while walking.
			continue
		}
		visitor.OnNode(node)

		nodeProps := node.Properties()
		for j := 0; j < nodeProps.NumProperties(); j++ {
			visitor.OnProperty(node, nil, nil, nodeProps.Property(j))
		}

		for j := 0; j < node.NumOutputStreams(); j++ {
			stream := node.OutputStream(j)
			visitor.OnStream(node, stream)
			streamProps := stream.Properties()
			for k := 0; k < streamProps.NumProperties(); k++ {
				visitor.OnProperty(node, stream, nil, streamProps.Property(k))
			}
		}

		for j := 0; j < node.NumInputPins(); j++ {
			pin := node.InputPin(j)
			visitor.OnPin(node, pin)
			pinProps := pin.Properties()
			for k := 0; k < pinProps.NumProperties(); k++ {
				visitor.OnProperty(node, nil, pin, pinProps.Property(k))
			}
		}
	}
}
