//go:build oxy_twoviews

package view

func init() {
	buildVariant.Layout = LayoutSideBySide
}
