//go:build oxy_vsynctimer

package view

func init() {
	buildVariant.Trigger = RedrawOnVSyncTimer
}
