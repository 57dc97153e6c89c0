package playback

// Events receives notifications from an opened track. Implementations of
// Media deliver them from their own goroutines and never from inside a call
// to Open or a Track method.
type Events interface {
	MetadataResolved(durationSeconds float64)
	TimeUpdate(positionSeconds float64)
	Ended()
	LoadFailed(err error)
}

// Track is an opened audio source.
type Track interface {
	Play() error
	Pause() error
	Seek(positionSeconds float64) error
	Close() error
}

// Media opens audio sources.
type Media interface {
	Open(source string, events Events) (Track, error)
}
