package estimator

import (
	"fmt"

	"calorie-bot/internal/models"
)

type promptSet struct {
	per100System   string
	per100User     string
	analysisSystem string
	analysisUser   string
	jsonContract   string
	sentinelFormat string
	fallbackItem   string
}

var promptsRU = promptSet{
	per100System: "Ты нутрициолог. Отвечай только JSON-объектом " +
		`{"kcal_per_100g": число, "protein_per_100g": число, "fat_per_100g": число, "carbs_per_100g": число}.`,
	per100User:     "Сколько калорий и БЖУ в 100 г продукта: %s?",
	analysisSystem: "Ты нутрициолог. Разбей приём пищи на 2-7 позиций, оцени калорийность каждой и посчитай сумму.",
	analysisUser:   "Приём пищи: %s",
	jsonContract: "Ответь строго JSON-объектом без пояснений: " +
		`{"items":[{"name":"...","kcal":число}],"total_kcal":число,"protein_g":число,"fat_g":число,"carbs_g":число,"comment":"..."}`,
	sentinelFormat: "Перечисли позиции строками вида \"- название — N ккал\". Последней строкой напиши ровно: TOTAL_KCAL: <целое число>",
	fallbackItem:   "приём пищи",
}

var promptsEN = promptSet{
	per100System: "You are a nutritionist. Reply only with a JSON object " +
		`{"kcal_per_100g": number, "protein_per_100g": number, "fat_per_100g": number, "carbs_per_100g": number}.`,
	per100User:     "How many calories and macros are in 100 g of: %s?",
	analysisSystem: "You are a nutritionist. Split the meal into 2-7 items, estimate the calories of each and add them up.",
	analysisUser:   "Meal: %s",
	jsonContract: "Reply strictly with a JSON object and nothing else: " +
		`{"items":[{"name":"...","kcal":number}],"total_kcal":number,"protein_g":number,"fat_g":number,"carbs_g":number,"comment":"..."}`,
	sentinelFormat: "List the items as lines \"- name — N kcal\". End with exactly this line: TOTAL_KCAL: <integer>",
	fallbackItem:   "meal",
}

var promptsSR = promptSet{
	per100System: "Ti si nutricionista. Odgovori samo JSON objektom " +
		`{"kcal_per_100g": broj, "protein_per_100g": broj, "fat_per_100g": broj, "carbs_per_100g": broj}.`,
	per100User:     "Koliko kalorija i makronutrijenata ima u 100 g namirnice: %s?",
	analysisSystem: "Ti si nutricionista. Podeli obrok na 2-7 stavki, proceni kalorije svake i saberi ih.",
	analysisUser:   "Obrok: %s",
	jsonContract: "Odgovori isključivo JSON objektom bez objašnjenja: " +
		`{"items":[{"name":"...","kcal":broj}],"total_kcal":broj,"protein_g":broj,"fat_g":broj,"carbs_g":broj,"comment":"..."}`,
	sentinelFormat: "Navedi stavke u redovima \"- naziv — N kcal\". Poslednji red mora biti tačno: TOTAL_KCAL: <ceo broj>",
	fallbackItem:   "obrok",
}

func promptsFor(locale models.Locale) promptSet {
	switch locale {
	case models.LocaleEN:
		return promptsEN
	case models.LocaleSR:
		return promptsSR
	default:
		return promptsRU
	}
}

func (p promptSet) analysisPrompts(format Format, meal string) (string, string) {
	system := p.analysisSystem + " "
	if format == FormatSentinel {
		system += p.sentinelFormat
	} else {
		system += p.jsonContract
	}
	return system, fmt.Sprintf(p.analysisUser, meal)
}
