package psapi

// FindTextLayers flattens a layer tree into the text layers it contains.
// Depth-first, a node's own tag is checked before its children are visited,
// and siblings are kept left to right. The input is never mutated; a tree
// with no text layers yields an empty slice.
func FindTextLayers(layers []Layer) []Layer {
	textLayers := []Layer{}
	for _, layer := range layers {
		if layer.Type == LayerTypeText {
			textLayers = append(textLayers, layer)
		}
		if len(layer.Children) > 0 {
			textLayers = append(textLayers, FindTextLayers(layer.Children)...)
		}
	}
	return textLayers
}
