//go:build oxy_eagerredraw

package view

func init() {
	buildVariant.EagerRedraw = true
}
