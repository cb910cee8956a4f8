//go:build oxy_novsync

package view

import "github.com/Carmen-Shannon/oxy-view/common"

func init() {
	buildVariant.PresentMode = common.PresentModeImmediate
}
