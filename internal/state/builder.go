package state

// Builder assembles raw observations for simulators and fixtures.
type Builder struct {
	raw []float64
}

func NewBuilder() *Builder {
	return &Builder{raw: make([]float64, MinLength)}
}

// From starts a builder from an existing snapshot.
func From(v Vector) *Builder {
	raw := v.Raw()
	if len(raw) < MinLength {
		raw = append(raw, make([]float64, MinLength-len(raw))...)
	}
	return &Builder{raw: raw}
}

func (b *Builder) Set(i int, value float64) *Builder {
	b.raw[i] = value
	return b
}

func (b *Builder) Paddle(x, y, z float64) *Builder {
	b.raw[IdxPaddleX], b.raw[IdxPaddleY], b.raw[IdxPaddleZ] = x, y, z
	return b
}

func (b *Builder) Ball(x, y, z float64) *Builder {
	b.raw[IdxBallX], b.raw[IdxBallY], b.raw[IdxBallZ] = x, y, z
	return b
}

func (b *Builder) BallVelocity(vx, vy, vz float64) *Builder {
	b.raw[IdxBallVX], b.raw[IdxBallVY], b.raw[IdxBallVZ] = vx, vy, vz
	return b
}

func (b *Builder) Playing(on bool) *Builder {
	if on {
		b.raw[IdxPlaying] = 1
	} else {
		b.raw[IdxPlaying] = 0
	}
	return b
}

func (b *Builder) Score(ours, opponent float64) *Builder {
	b.raw[IdxOurScore], b.raw[IdxOpponentScore] = ours, opponent
	return b
}

func (b *Builder) Build() Vector {
	return Vector{raw: append([]float64(nil), b.raw...)}
}
