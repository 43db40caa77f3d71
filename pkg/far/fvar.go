package far

import "github.com/Faultbox/patchtables/pkg/sdc"

// fvarChannel stores the face-varying patches of one channel. Its
// topology is independent of the vertex patches: a channel may have seams
// the vertex topology does not. Values are variable-stride records, one
// per patch, addressed through offsets.
type fvarChannel struct {
	interpolation sdc.FVarLinearInterpolation
	patchesType   PatchType   // used when types is empty
	types         []PatchType // one per patch, or empty
	offsets       []Index     // len = patches + 1
	values        []Index
}

func (c *fvarChannel) numPatches() int {
	return len(c.offsets) - 1
}

func (c *fvarChannel) patchType(patch int) PatchType {
	if len(c.types) == 0 {
		return c.patchesType
	}
	return c.types[patch]
}

func (c *fvarChannel) patchValues(patch int) []Index {
	start, end := c.offsets[patch], c.offsets[patch+1]
	return c.values[start:end:end]
}

// NumFVarChannels returns the number of face-varying channels.
func (pt *PatchTables) NumFVarChannels() int { return len(pt.fvarChannels) }

func (pt *PatchTables) fvarChannel(channel int) *fvarChannel {
	if channel < 0 || channel >= len(pt.fvarChannels) {
		violatef("fvar channel %d out of range [0,%d)", channel, len(pt.fvarChannels))
	}
	return &pt.fvarChannels[channel]
}

// NumFVarValues returns how many entries a face-varying source needs
// for the channel: one past its largest value index.
func (pt *PatchTables) NumFVarValues(channel int) int {
	return maxIndex(pt.fvarChannel(channel).values) + 1
}

// FVarChannelLinearInterpolation returns the interpolation mode of a
// channel.
func (pt *PatchTables) FVarChannelLinearInterpolation(channel int) sdc.FVarLinearInterpolation {
	return pt.fvarChannel(channel).interpolation
}

// FVarPatchType returns the channel's patch type for the patch identified
// by h.
func (pt *PatchTables) FVarPatchType(channel int, h PatchHandle) PatchType {
	pt.checkHandle(h)
	return pt.fvarChannel(channel).patchType(h.PatchIndex)
}

// FVarPatchTypeAt returns the channel's patch type for patch p in array a.
func (pt *PatchTables) FVarPatchTypeAt(channel, a, p int) PatchType {
	return pt.fvarChannel(channel).patchType(pt.patchIndex(a, p))
}

// FVarPatchTypes returns one patch type per patch of the channel.
func (pt *PatchTables) FVarPatchTypes(channel int) []PatchType {
	c := pt.fvarChannel(channel)
	if len(c.types) > 0 {
		return c.types
	}
	types := make([]PatchType, c.numPatches())
	for i := range types {
		types[i] = c.patchesType
	}
	return types
}

// FVarPatchValues returns the channel's value indices for the patch
// identified by h.
func (pt *PatchTables) FVarPatchValues(channel int, h PatchHandle) []Index {
	pt.checkHandle(h)
	return pt.fvarChannel(channel).patchValues(h.PatchIndex)
}

// FVarPatchValuesAt returns the channel's value indices for patch p in
// array a.
func (pt *PatchTables) FVarPatchValuesAt(channel, a, p int) []Index {
	return pt.fvarChannel(channel).patchValues(pt.patchIndex(a, p))
}

// FVarPatchesValues returns the value indices of every patch of the
// channel, back to back.
func (pt *PatchTables) FVarPatchesValues(channel int) []Index {
	return pt.fvarChannel(channel).values
}
