package physics

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/san-kum/hoversim/internal/dynamo"
)

type Config struct {
	Width   float64     `yaml:"width"`
	Height  float64     `yaml:"height"`
	Gravity dynamo.Vec2 `yaml:"gravity"`
	// Walls adds the four boundary segments around the Width×Height area.
	Walls        bool     `yaml:"walls"`
	WallRadius   float64  `yaml:"wall_radius"`
	WallMaterial Material `yaml:"wall_material"`
	// Iterations is the number of solver passes per step.
	Iterations int `yaml:"iterations"`
}

func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       600,
		Gravity:      dynamo.Vec2{0, 981},
		Walls:        true,
		WallRadius:   10,
		WallMaterial: Material{Elasticity: 1, Friction: 1},
		Iterations:   10,
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return &dynamo.ConfigError{Field: "world.size", Reason: fmt.Sprintf("must be positive, got %gx%g", c.Width, c.Height)}
	}
	if math.IsNaN(c.Gravity.X()) || math.IsNaN(c.Gravity.Y()) {
		return &dynamo.ConfigError{Field: "world.gravity", Reason: "must be finite"}
	}
	if c.Walls && c.WallRadius <= 0 {
		return &dynamo.ConfigError{Field: "world.wall_radius", Reason: "must be positive"}
	}
	if c.Iterations < 1 {
		return &dynamo.ConfigError{Field: "world.iterations", Reason: "must be at least 1"}
	}
	return nil
}

// Segment is a static wall of the given thickness radius.
type Segment struct {
	A, B     dynamo.Vec2
	Radius   float64
	Material Material
}

// Space wraps a chipmunk space holding the drone and the static walls.
type Space struct {
	cfg      Config
	space    *cp.Space
	bodies   []*Body
	segments []Segment
	time     float64
	steps    int
}

var _ dynamo.World = (*Space)(nil)

func NewSpace(cfg Config) (*Space, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	space := cp.NewSpace()
	space.SetGravity(vector(cfg.Gravity))
	space.Iterations = uint(cfg.Iterations)

	s := &Space{cfg: cfg, space: space}
	if cfg.Walls {
		w, h := cfg.Width, cfg.Height
		corners := []dynamo.Vec2{{0, h}, {w, h}, {w, 0}, {0, 0}}
		for i := range corners {
			s.AddSegment(Segment{
				A:        corners[i],
				B:        corners[(i+1)%len(corners)],
				Radius:   cfg.WallRadius,
				Material: cfg.WallMaterial,
			})
		}
	}
	return s, nil
}

// AddSegment attaches a static wall to the space.
func (s *Space) AddSegment(seg Segment) {
	shape := cp.NewSegment(s.space.StaticBody, vector(seg.A), vector(seg.B), seg.Radius)
	seg.Material.apply(shape)
	s.space.AddShape(shape)
	s.segments = append(s.segments, seg)
}

func (s *Space) Segments() []Segment { return s.segments }

// CreateBody adds a shapeless body. It is moved by forces but never collides.
func (s *Space) CreateBody(mass, moment float64, position dynamo.Vec2) dynamo.Body {
	return s.addBody(mass, moment, position)
}

// NewBox adds a body with a w×h box shape and the matching moment of inertia.
func (s *Space) NewBox(mass, w, h float64, position dynamo.Vec2, mat Material) *Body {
	b := s.addBody(mass, MomentForBox(mass, w, h), position)
	shape := cp.NewBox(b.body, w, h, 0)
	mat.apply(shape)
	s.space.AddShape(shape)
	b.halfW, b.halfH = w/2, h/2
	b.shaped = true
	return b
}

func (s *Space) addBody(mass, moment float64, position dynamo.Vec2) *Body {
	body := s.space.AddBody(cp.NewBody(mass, moment))
	body.SetPosition(vector(position))
	b := &Body{body: body}
	s.bodies = append(s.bodies, b)
	return b
}

func (s *Space) Time() float64  { return s.time }
func (s *Space) Steps() int     { return s.steps }
func (s *Space) Config() Config { return s.cfg }

// Step advances the space by dt. Bodies whose state is not finite, before or
// after the step, fail with ErrPhysics.
func (s *Space) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: invalid time step %g", dynamo.ErrPhysics, dt)
	}
	if err := s.checkFinite(); err != nil {
		return err
	}
	s.space.Step(dt)
	if err := s.checkFinite(); err != nil {
		return err
	}
	s.time += dt
	s.steps++
	return nil
}

func (s *Space) checkFinite() error {
	for i, b := range s.bodies {
		if !b.finite() {
			return fmt.Errorf("%w: body %d state is not finite", dynamo.ErrPhysics, i)
		}
	}
	return nil
}
