package anim

import "errors"

// Clip construction errors.
var (
	ErrEmptyClipName     = errors.New("clip name is empty")
	ErrNonPositiveLength = errors.New("clip length must be positive")
	ErrEmptyChannel      = errors.New("channel has no keyframes")
	ErrUnsortedKeyframes = errors.New("keyframes are not sorted by time")
	ErrNegativeKeyTime   = errors.New("keyframe time is negative")
	ErrDuplicateChannel  = errors.New("duplicate bone/kind channel")
	ErrUnknownCurve      = errors.New("unknown interpolation curve")
	ErrUnknownKind       = errors.New("unknown channel kind")
	ErrEmptyChannelBone  = errors.New("channel bone name is empty")
)

// Skeleton and library construction errors.
var (
	ErrNoBones        = errors.New("skeleton has no bones")
	ErrEmptyBoneName  = errors.New("bone name is empty")
	ErrDuplicateBone  = errors.New("duplicate bone name")
	ErrDuplicateClip  = errors.New("duplicate clip name")
	ErrDuplicateLayer = errors.New("duplicate layer name")
)
