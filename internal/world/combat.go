package world

import "github.com/annel0/mmo-manager/internal/protocol/events"

// applyDamage снимает здоровье с жертвы. Смерть обрабатывается ровно один
// раз: жертва удаляется из мира, публикуется ActorDied, герой-убийца
// получает добычу. Выжившая жертва отвечает атакующему, если у неё нет
// цели или цель вне досягаемости.
func (w *World) applyDamage(attacker, victim *Actor, damage int) {
	if victim.IsDead() {
		return
	}

	victim.health = max(0, victim.health-damage)

	if victim.IsDead() {
		w.logger.Debug("%s #%d погиб", victim.actorType, victim.id)
		w.post(events.ActorDied{ActorID: victim.id})
		w.removeActor(victim)

		if attacker != nil && attacker.isHero {
			attacker.lootValue += victim.lootValue
			w.post(events.Loot{ActorID: attacker.id, Amount: victim.lootValue})
		}
		return
	}

	if attacker == nil || attacker.IsDead() {
		return
	}
	current, ok := w.Actor(victim.targetID)
	if victim.targetID == events.NoActor || !ok || !victim.inRange(current, victim.attackRange) {
		w.setTarget(victim, attacker.id)
	}
}
