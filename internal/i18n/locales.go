package i18n

var ru = Messages{
	ProfileTemplate: "Отправьте параметры одним сообщением, например:\n" +
		"Возраст 34 Рост 181 Вес 88 Цель вес 84 Пол м Активность средняя\n\n" +
		"Активность: низкая, средняя или высокая.",
	ProfileIncomplete:  "Не удалось распознать все параметры.",
	ProfileSaved:       "Профиль сохранён.\nBMR: %.0f ккал\nTDEE: %.0f ккал\nДневная цель: %d ккал",
	ProfileReactivated: "Используем сохранённый профиль. Дневная цель: %d ккал.",
	NeedProfile:        "Сначала заполните профиль, чтобы я мог считать калории.",

	MealLogged:    "Приём пищи #%d: %s\n%d ккал",
	MealClamped:   "Оценка %d ккал ограничена до %d ккал.",
	MealItem:      "• %s: %d ккал",
	MealMacros:    "Б %.0f г / Ж %.0f г / У %.0f г",
	MealComment:   "Комментарий: %s",
	Remaining:     "Осталось на сегодня: %d ккал из %d.",
	OverTarget:    "Превышение дневной цели на %d ккал (цель %d).",
	Redescribe:    "Не получилось оценить калорийность. Опишите блюдо подробнее: продукты и примерный вес.",
	OutOfBounds:   "Оценка выглядит неправдоподобно. Опишите блюдо подробнее: продукты и примерный вес.",
	QuotaExceeded: "Лимит бесплатных оценок на сегодня исчерпан. Укажите калории или вес продукта, либо оформите /premium.",

	Guidance: "Напишите, что вы съели, например «200 г курицы» или «300 ккал». /help покажет команды.",
	Help: "Команды:\n" +
		"/start - выбрать язык и профиль\n" +
		"/status - итоги дня\n" +
		"/reset - обнулить итоги дня\n" +
		"/weight 85 - обновить вес\n" +
		"/premium - безлимитные оценки\n\n" +
		"Чтобы записать еду, просто опишите её.",
	Status:        "Сегодня: %d ккал из %d, приёмов пищи: %d.",
	StatusMacros:  "Б %.0f г / Ж %.0f г / У %.0f г",
	ResetDone:     "Итоги дня обнулены.",
	WeightUpdated: "Вес обновлён: %.1f кг. Новая дневная цель: %d ккал.",
	WeightUsage:   "Укажите вес, например: /weight 85",
	LanguageSet:   "Язык: русский.",

	PremiumLink:        "Оформить премиум можно по ссылке:\n%s",
	PremiumActive:      "Премиум уже активен.",
	PremiumUnavailable: "Оплата сейчас недоступна.",
	PremiumActivated:   "Спасибо! Премиум активирован.",

	InternalError: "Что-то пошло не так. Попробуйте ещё раз.",
}

var en = Messages{
	ProfileTemplate: "Send your details in one message, for example:\n" +
		"Age 34 Height 181 Weight 88 Goal weight 84 Sex m Activity medium\n\n" +
		"Activity: low, medium or high.",
	ProfileIncomplete:  "I could not read all of your details.",
	ProfileSaved:       "Profile saved.\nBMR: %.0f kcal\nTDEE: %.0f kcal\nDaily target: %d kcal",
	ProfileReactivated: "Using your saved profile. Daily target: %d kcal.",
	NeedProfile:        "Please fill in your profile first so I can count calories.",

	MealLogged:    "Meal #%d: %s\n%d kcal",
	MealClamped:   "The estimate of %d kcal was capped at %d kcal.",
	MealItem:      "• %s: %d kcal",
	MealMacros:    "P %.0f g / F %.0f g / C %.0f g",
	MealComment:   "Note: %s",
	Remaining:     "Left for today: %d kcal of %d.",
	OverTarget:    "Over the daily target by %d kcal (target %d).",
	Redescribe:    "I could not estimate this meal. Please describe it with items and approximate amounts.",
	OutOfBounds:   "That estimate looks implausible. Please describe the meal with items and approximate amounts.",
	QuotaExceeded: "You have used today's free estimates. Give the calories or the weight, or get /premium.",

	Guidance: "Tell me what you ate, e.g. \"200 g chicken\" or \"300 kcal\". /help lists the commands.",
	Help: "Commands:\n" +
		"/start - choose language and profile\n" +
		"/status - today's summary\n" +
		"/reset - reset today's totals\n" +
		"/weight 85 - update your weight\n" +
		"/premium - unlimited estimates\n\n" +
		"To log food, just describe it.",
	Status:        "Today: %d kcal of %d, meals: %d.",
	StatusMacros:  "P %.0f g / F %.0f g / C %.0f g",
	ResetDone:     "Today's totals were reset.",
	WeightUpdated: "Weight updated: %.1f kg. New daily target: %d kcal.",
	WeightUsage:   "Give your weight, for example: /weight 85",
	LanguageSet:   "Language: English.",

	PremiumLink:        "Get premium here:\n%s",
	PremiumActive:      "Premium is already active.",
	PremiumUnavailable: "Payments are not available right now.",
	PremiumActivated:   "Thank you! Premium is active.",

	InternalError: "Something went wrong. Please try again.",
}

var sr = Messages{
	ProfileTemplate: "Pošaljite podatke u jednoj poruci, na primer:\n" +
		"Godine 34 Visina 181 Težina 88 Cilj težina 84 Pol m Aktivnost srednja\n\n" +
		"Aktivnost: niska, srednja ili visoka.",
	ProfileIncomplete:  "Nisam uspeo da pročitam sve podatke.",
	ProfileSaved:       "Profil je sačuvan.\nBMR: %.0f kcal\nTDEE: %.0f kcal\nDnevni cilj: %d kcal",
	ProfileReactivated: "Koristimo sačuvani profil. Dnevni cilj: %d kcal.",
	NeedProfile:        "Prvo popunite profil da bih mogao da računam kalorije.",

	MealLogged:    "Obrok #%d: %s\n%d kcal",
	MealClamped:   "Procena od %d kcal je ograničena na %d kcal.",
	MealItem:      "• %s: %d kcal",
	MealMacros:    "P %.0f g / M %.0f g / UH %.0f g",
	MealComment:   "Napomena: %s",
	Remaining:     "Preostalo za danas: %d kcal od %d.",
	OverTarget:    "Dnevni cilj je premašen za %d kcal (cilj %d).",
	Redescribe:    "Nisam uspeo da procenim obrok. Opišite ga detaljnije: namirnice i približnu težinu.",
	OutOfBounds:   "Procena deluje neverovatno. Opišite obrok detaljnije: namirnice i približnu težinu.",
	QuotaExceeded: "Iskoristili ste današnje besplatne procene. Navedite kalorije ili težinu, ili uzmite /premium.",

	Guidance: "Napišite šta ste jeli, npr. \"200 g piletine\" ili \"300 kcal\". /help prikazuje komande.",
	Help: "Komande:\n" +
		"/start - izbor jezika i profila\n" +
		"/status - današnji rezime\n" +
		"/reset - poništi današnje zbirove\n" +
		"/weight 85 - ažuriraj težinu\n" +
		"/premium - neograničene procene\n\n" +
		"Da biste zabeležili hranu, samo je opišite.",
	Status:        "Danas: %d kcal od %d, obroka: %d.",
	StatusMacros:  "P %.0f g / M %.0f g / UH %.0f g",
	ResetDone:     "Današnji zbirovi su poništeni.",
	WeightUpdated: "Težina je ažurirana: %.1f kg. Novi dnevni cilj: %d kcal.",
	WeightUsage:   "Navedite težinu, na primer: /weight 85",
	LanguageSet:   "Jezik: srpski.",

	PremiumLink:        "Premium možete uzeti ovde:\n%s",
	PremiumActive:      "Premium je već aktivan.",
	PremiumUnavailable: "Plaćanje trenutno nije dostupno.",
	PremiumActivated:   "Hvala! Premium je aktiviran.",

	InternalError: "Nešto nije u redu. Pokušajte ponovo.",
}
