package world

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownActorType тип актёра отсутствует в таблице параметров
var ErrUnknownActorType = errors.New("unknown actor type")

// Range значение параметра из таблицы: число или пара [min, max].
// Нулевое значение означает "ключ не задан".
type Range struct {
	Min, Max float64
	set      bool
}

// Fixed фиксированное значение
func Fixed(v float64) Range { return Range{Min: v, Max: v, set: true} }

// Between диапазон [min, max]
func Between(min, max float64) Range {
	if max < min {
		min, max = max, min
	}
	return Range{Min: min, Max: max, set: true}
}

// IsSet задан ли ключ
func (r Range) IsSet() bool { return r.set }

// Or возвращает r, если ключ задан, иначе фиксированное def
func (r Range) Or(def float64) Range {
	if r.set {
		return r
	}
	return Fixed(def)
}

// Sample равномерная выборка из диапазона
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Max > r.Min {
		return uniform(rng, r.Min, r.Max)
	}
	return r.Min
}

// UnmarshalYAML принимает скаляр или последовательность из двух чисел
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*r = Fixed(v)
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return err
		}
		switch len(vs) {
		case 1:
			*r = Fixed(vs[0])
		case 2:
			*r = Between(vs[0], vs[1])
		default:
			return fmt.Errorf("line %d: range must have 1 or 2 values, got %d", node.Line, len(vs))
		}
		return nil
	default:
		return fmt.Errorf("line %d: expected number or [min, max]", node.Line)
	}
}

// ActorParams параметры одного типа актёра. Отсутствующие ключи
// заменяются значениями по умолчанию при появлении актёра.
type ActorParams struct {
	Speed       Range `yaml:"speed"`
	Radius      Range `yaml:"radius"`
	MinRange    Range `yaml:"min_range"`
	MaxRange    Range `yaml:"max_range"`
	ThreatRange Range `yaml:"threat_range"`
	MinDamage   Range `yaml:"min_damage"`
	MaxDamage   Range `yaml:"max_damage"`
	MinHealth   Range `yaml:"min_health"`
	MaxHealth   Range `yaml:"max_health"`
	HealthRegen Range `yaml:"health_regen"`
	RegenTime   Range `yaml:"regen_time"`
	AttackTime  Range `yaml:"attack_time"`
	MissRate    Range `yaml:"miss_rate"`
	LootAvg     Range `yaml:"loot_avg"`
	LootVar     Range `yaml:"loot_var"`
}

// ActorStore таблица параметров по типам актёров
type ActorStore struct {
	params map[string]ActorParams
}

// NewActorStore создаёт таблицу из готовой карты
func NewActorStore(params map[string]ActorParams) *ActorStore {
	copied := make(map[string]ActorParams, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &ActorStore{params: copied}
}

// LoadActorStore читает таблицу из YAML или JSON файла
func LoadActorStore(path string) (*ActorStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actor table %s: %w", path, err)
	}
	store, err := ParseActorStore(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse actor table %s: %w", path, err)
	}
	return store, nil
}

// ParseActorStore разбирает таблицу параметров (YAML; JSON тоже подходит)
func ParseActorStore(data []byte) (*ActorStore, error) {
	var params map[string]ActorParams
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, errors.New("actor table is empty")
	}
	return &ActorStore{params: params}, nil
}

// Params параметры типа актёра
func (s *ActorStore) Params(actorType string) (ActorParams, bool) {
	p, ok := s.params[actorType]
	return p, ok
}

// Has есть ли такой тип
func (s *ActorStore) Has(actorType string) bool {
	_, ok := s.params[actorType]
	return ok
}

// Names все типы актёров по алфавиту
func (s *ActorStore) Names() []string {
	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// actorStats выпавшие при появлении характеристики
type actorStats struct {
	speed       float64
	radius      float64
	attackRange float64
	threatRange float64
	minDamage   int
	maxDamage   int
	maxHealth   int
	healthRegen int
	regenTime   Range
	attackTime  Range
	missRate    float64
	lootValue   int
}

// rollStats разыгрывает характеристики по таблице с учётом значений по умолчанию
func rollStats(p ActorParams, isHero bool, rng *rand.Rand) actorStats {
	var s actorStats

	s.speed = p.Speed.Or(1).Sample(rng)
	s.radius = p.Radius.Or(1).Sample(rng)

	// дальность атаки
	minRange := p.MinRange.Or(s.radius).Sample(rng)
	maxRange := p.MaxRange.Or(minRange).Sample(rng)
	s.attackRange = float64(int(uniform(rng, minRange, maxRange)))

	// дальность угрозы
	s.threatRange = p.ThreatRange.Or(1.5 * s.attackRange).Sample(rng)
	s.threatRange = max(s.radius, s.threatRange)

	// урон
	s.minDamage = max(0, int(p.MinDamage.Or(0).Sample(rng)))
	s.maxDamage = max(s.minDamage, int(p.MaxDamage.Or(float64(s.minDamage)).Sample(rng)))

	// здоровье
	minHealth := max(1, p.MinHealth.Or(1).Sample(rng))
	maxHealth := p.MaxHealth.Or(minHealth).Sample(rng)
	s.maxHealth = max(1, int(uniform(rng, minHealth, maxHealth)))

	s.healthRegen = int(p.HealthRegen.Or(0).Sample(rng))
	s.regenTime = p.RegenTime.Or(2)
	s.attackTime = p.AttackTime.Or(2)
	s.missRate = min(1, max(0, p.MissRate.Or(0.1).Sample(rng)))

	// добыча
	if !isHero {
		avg := p.LootAvg.Or(10).Sample(rng)
		variance := p.LootVar.Or(avg / 5).Sample(rng)
		s.lootValue = max(1, int(avg+rng.NormFloat64()*variance))
	}
	return s
}

// uniform равномерное число между a и b (порядок границ не важен)
func uniform(rng *rand.Rand, a, b float64) float64 {
	return a + (b-a)*rng.Float64()
}
