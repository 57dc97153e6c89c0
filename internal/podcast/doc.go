// Package podcast defines the generation parameters a user submits: the
// topic, the narration voice, the tone and the target duration.
//
// It owns the voice and tone enumerations together with their catalog
// descriptions, topic normalization, and the validation rules applied before
// any request reaches the generation service.
package podcast
