package content

import "encoding/base64"

// Node is one part of a message body. It is either a Leaf carrying encoded
// bytes or a Container holding child parts.
type Node interface {
	mediaType() string
	isNode()
}

// Leaf is a body part with its payload encoded as URL-safe base64.
type Leaf struct {
	MediaType string
	Data      string
}

// Container is a multipart body part.
type Container struct {
	MediaType string
	Children  []Node
}

func (l Leaf) mediaType() string      { return l.MediaType }
func (c Container) mediaType() string { return c.MediaType }

func (Leaf) isNode()      {}
func (Container) isNode() {}

func NewLeaf(mediaType, data string) Leaf {
	return Leaf{MediaType: mediaType, Data: data}
}

func NewContainer(mediaType string, children ...Node) Container {
	return Container{MediaType: mediaType, Children: children}
}

// EncodeLeaf builds a Leaf from already decoded bytes, for transports that do
// not hand out base64url payloads themselves.
func EncodeLeaf(mediaType string, raw []byte) Leaf {
	return Leaf{MediaType: mediaType, Data: base64.URLEncoding.EncodeToString(raw)}
}

// MediaTypeOf returns the media type of n, or "" for a nil node.
func MediaTypeOf(n Node) string {
	if n == nil {
		return ""
	}
	return n.mediaType()
}
