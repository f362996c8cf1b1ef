package model

// VolumeID identifies a placed volume inside the engine's volume
// registry. The registry is the sole authority over placement lifetime;
// IDs are not stable across processes.
type VolumeID int64

// VolumeHandle is a non-owning reference to a placed volume. Holding a
// handle grants the right to reconfigure the placement (material swap,
// optical attachment) but never to destroy it.
type VolumeHandle struct {
	ID   VolumeID
	Name string
}

// Zero reports whether the handle refers to nothing.
func (h VolumeHandle) Zero() bool {
	return h.ID == 0 && h.Name == ""
}
