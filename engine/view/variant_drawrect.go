//go:build oxy_drawrect

package view

func init() {
	buildVariant.PaintStyle = PaintStyleDrawRect
}
