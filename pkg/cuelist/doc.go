// Package cuelist loads and plays YAML cue sheets: timed sequences of
// OSC messages for scripted control.
//
// A sheet names its cues; each cue fires at an offset from the start
// of playback and carries either one message or one bundle:
//
//	name: opening
//	cues:
//	  - at: 0s
//	    address: /synth/1/freq
//	    args: [i 440]
//	  - at: 1500ms
//	    bundle:
//	      - {address: /mixer/master/level, args: [f 0.8]}
//
// Arguments are tagged literals ("i 440", "f 0.5", "h 1", "d 0.1",
// "s some text", "b 6f7363" with a hex payload, "t immediate" or an
// RFC 3339 time, "c A", and the bare booleans "T"/"F") or plain YAML
// scalars, which map by type: integers to i (h when outside int32
// range), floats to f, booleans to the int32 1/0 encoding, everything
// else to s. A plain string that happens to begin with a tag letter
// and a space must be written with the s tag ("s i like it").
package cuelist
