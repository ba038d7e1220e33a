package domain

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func clonePtr[T any](in *T, deep func(T) T) *T {
	if in == nil {
		return nil
	}
	v := deep(*in)
	return &v
}

// Clone returns a deep copy of a.
func (a AssetRef) Clone() AssetRef {
	a.Data = cloneSlice(a.Data)
	a.Meta = clonePtr(a.Meta, func(m AssetMeta) AssetMeta {
		m.Tags = cloneSlice(m.Tags)
		return m
	})
	return a
}

func same[T any](v T) T { return v }

func cloneImageOverlay(o ImageOverlay) ImageOverlay {
	o.Asset = o.Asset.Clone()
	o.Placement = clonePtr(o.Placement, same[Placement])
	return o
}

func cloneCue(c SoundCue) SoundCue {
	c.Asset = clonePtr(c.Asset, AssetRef.Clone)
	return c
}

// Clone returns a deep copy of s.
func (s Scene) Clone() Scene {
	s.Background = clonePtr(s.Background, func(b Background) Background {
		b.Asset = b.Asset.Clone()
		return b
	})
	s.Overlays.Text = clonePtr(s.Overlays.Text, func(t TextOverlay) TextOverlay {
		t.Placement = clonePtr(t.Placement, same[Placement])
		return t
	})
	s.Overlays.Product = clonePtr(s.Overlays.Product, cloneImageOverlay)
	s.Overlays.Logo = clonePtr(s.Overlays.Logo, cloneImageOverlay)
	s.Quality = clonePtr(s.Quality, func(q QualityScore) QualityScore {
		q.SubScores = clonePtr(q.SubScores, func(sub SubScores) SubScores {
			sub.BrandCompliance = clonePtr(sub.BrandCompliance, same[int])
			return sub
		})
		q.Composite = clonePtr(q.Composite, same[int])
		q.Issues = cloneSlice(q.Issues)
		q.Overrides = cloneSlice(q.Overrides)
		q.Artifacts = cloneSlice(q.Artifacts)
		return q
	})
	s.Composition = clonePtr(s.Composition, func(c CompositionInstructions) CompositionInstructions {
		c.Layers = cloneSlice(c.Layers)
		return c
	})
	s.Sound = clonePtr(s.Sound, func(d SoundDesign) SoundDesign {
		d.TransitionIn = clonePtr(d.TransitionIn, cloneCue)
		d.TransitionOut = clonePtr(d.TransitionOut, cloneCue)
		d.Ambience = clonePtr(d.Ambience, cloneCue)
		d.Emphasis = clonePtr(d.Emphasis, cloneCue)
		return d
	})
	return s
}

// Clone returns a deep copy of a.
func (a ProjectAssets) Clone() ProjectAssets {
	a.Voiceover = clonePtr(a.Voiceover, AssetRef.Clone)
	a.Music = clonePtr(a.Music, AssetRef.Clone)
	a.Images = cloneAssetRefs(a.Images)
	a.Videos = cloneAssetRefs(a.Videos)
	return a
}

func cloneAssetRefs(in []AssetRef) []AssetRef {
	if in == nil {
		return nil
	}
	out := make([]AssetRef, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

func cloneScenes(in []Scene) []Scene {
	if in == nil {
		return nil
	}
	out := make([]Scene, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
