package scheduling

// JobID идентификатор задачи планировщика
type JobID uint64

type job struct {
	id       JobID
	timer    *Timer
	fn       func()
	periodic bool
}

// Scheduler хранит отложенные и периодические задачи и продвигается раз в тик.
// Не потокобезопасен: используется только из игрового цикла.
type Scheduler struct {
	jobs    []*job
	pending []*job
	nextID  JobID
	running bool
}

// NewScheduler создаёт пустой планировщик
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Post выполнит fn один раз через delay секунд
func (s *Scheduler) Post(fn func(), delay float64) JobID {
	return s.add(&job{timer: NewTimer(delay), fn: fn})
}

// Periodic выполняет fn каждые period секунд, первый раз на ближайшем Update
func (s *Scheduler) Periodic(fn func(), period float64) JobID {
	t := NewTimer(period)
	t.FastForward()
	return s.add(&job{timer: t, fn: fn, periodic: true})
}

// Cancel снимает задачу. Возвращает false, если задача не найдена.
func (s *Scheduler) Cancel(id JobID) bool {
	for _, list := range [][]*job{s.jobs, s.pending} {
		for _, j := range list {
			if j.id == id && j.fn != nil {
				j.fn = nil
				return true
			}
		}
	}
	return false
}

// Len количество активных задач
func (s *Scheduler) Len() int {
	n := 0
	for _, list := range [][]*job{s.jobs, s.pending} {
		for _, j := range list {
			if j.fn != nil {
				n++
			}
		}
	}
	return n
}

func (s *Scheduler) add(j *job) JobID {
	s.nextID++
	j.id = s.nextID
	if s.running {
		// Задачи, добавленные из колбэка, начинают отсчёт со следующего Update
		s.pending = append(s.pending, j)
	} else {
		s.jobs = append(s.jobs, j)
	}
	return j.id
}

// Update продвигает все таймеры на dt и вызывает истёкшие задачи.
// Одноразовые задачи удаляются, периодические остаются.
func (s *Scheduler) Update(dt float64) {
	s.running = true
	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if j.fn == nil {
			continue
		}
		j.timer.Update(dt)
		if j.timer.IsExpiredThenReset() {
			fn := j.fn
			if !j.periodic {
				j.fn = nil
			}
			fn()
		}
		if j.fn != nil {
			kept = append(kept, j)
		}
	}
	// обнуляем хвост, чтобы не держать замыкания
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = nil
	}
	s.jobs = append(kept, s.pending...)
	s.pending = nil
	s.running = false
}
