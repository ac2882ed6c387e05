package parser

import "calorie-bot/internal/models"

type profileField string

const (
	fieldGoal   profileField = "goal"
	fieldWeight profileField = "weight"
	fieldAge    profileField = "age"
	fieldHeight profileField = "height"
)

// fieldOrder is the extraction order. Goal runs first because its phrases
// contain the weight keywords ("цель вес", "goal weight").
var fieldOrder = []profileField{fieldGoal, fieldWeight, fieldAge, fieldHeight}

var fieldKeywords = map[profileField][]string{
	fieldGoal: {
		"целевой вес", "желаемый вес", "цель вес", "цель",
		"goal weight", "target weight", "goal", "target",
		"ciljna težina", "ciljna tezina", "cilj",
	},
	fieldWeight: {"вес", "weight", "težina", "tezina", "masa"},
	fieldAge:    {"возраст", "age", "godine", "godina", "starost"},
	fieldHeight: {"рост", "height", "visina"},
}

type bounds struct{ min, max float64 }

var fieldBounds = map[profileField]bounds{
	fieldGoal:   {30, 400},
	fieldWeight: {30, 400},
	fieldAge:    {10, 120},
	fieldHeight: {100, 250},
}

// femaleTokens are matched against whole words.
var femaleTokens = []string{
	"ж", "жен", "женский", "женщина", "девушка",
	"f", "female", "woman",
	"ž", "z", "žena", "zena", "žensko", "zensko", "ženski", "zenski",
}

// activityKeywords are matched as substrings; the earliest hit wins.
var activityKeywords = map[models.ActivityLevel][]string{
	models.ActivityLow: {
		"низк", "сидяч", "малоподвиж",
		"low", "sedentary",
		"nisk", "nizak", "mala",
	},
	models.ActivityMedium: {
		"средн", "умерен",
		"medium", "moderate",
		"sredn", "umeren",
	},
	models.ActivityHigh: {
		"высок", "интенсив",
		"high", "intense",
		"visok", "intenziv",
	},
}

// foodKeywords is the curated meal/drink vocabulary. Entries of up to three
// letters must match a whole word, longer ones match as word prefixes.
var foodKeywords = []string{
	// ru
	"завтрак", "обед", "ужин", "перекус", "съел", "съела", "поел", "поела", "выпил", "выпила",
	"куриц", "курин", "мясо", "мяса", "говядин", "свинин", "индейк", "рыба", "рыбу", "лосос", "тунец",
	"яйц", "яичниц", "омлет", "сыр", "творог", "йогурт", "молок", "кефир",
	"хлеб", "батон", "каша", "кашу", "овсян", "гречк", "рис", "риса", "рисом", "макарон", "паста", "пасту",
	"картош", "картоф", "пюре", "салат", "суп", "борщ", "пельмен", "вареник", "блин",
	"пицц", "бургер", "шаурм", "сэндвич", "бутерброд", "ролл", "суши",
	"яблок", "банан", "апельсин", "фрукт", "овощ", "огур", "помидор", "орех",
	"шоколад", "конфет", "печень", "торт", "пирог", "мороженое",
	"сок", "кофе", "чай", "капучино", "латте", "пиво", "вино", "кола", "смузи",
	"соус", "майонез", "кетчуп", "масло",
	// en
	"breakfast", "lunch", "dinner", "snack", "ate", "eaten", "drank",
	"chicken", "beef", "pork", "turkey", "steak", "fish", "salmon", "tuna",
	"egg", "eggs", "omelet", "omelette", "cheese", "yogurt", "yoghurt", "milk",
	"bread", "toast", "oat", "oatmeal", "porridge", "rice", "pasta", "noodle", "potato", "fries",
	"salad", "soup", "pizza", "burger", "sandwich", "sushi", "wrap",
	"apple", "banana", "orange", "fruit", "vegetable", "nuts", "peanut",
	"chocolate", "candy", "cookie", "cake", "pie", "ice cream",
	"juice", "coffee", "tea", "latte", "cappuccino", "beer", "wine", "soda", "smoothie",
	"sauce", "mayo", "ketchup", "butter",
	// sr
	"doručak", "dorucak", "ručak", "rucak", "večera", "vecera", "užina", "uzina", "pojeo", "pojela", "popio", "popila",
	"piletin", "meso", "mesa", "junetin", "svinjetin", "riba", "ribu", "losos",
	"jaje", "jaja", "sir", "jogurt", "mleko", "hleb", "pirinač", "pirinac", "testenin",
	"krompir", "pomfrit", "salata", "salatu", "supa", "supu", "čorba", "corba",
	"pica", "picu", "burek", "ćevap", "cevap", "pljeskavic", "sendvič", "sendvic",
	"jabuk", "banan", "voće", "voce", "povrće", "povrce", "orah",
	"čokolad", "cokolad", "kolač", "kolac", "sladoled",
	"sok", "kafa", "kafu", "čaj", "caj", "pivo", "vino",
	"sos", "majonez", "kečap", "kecap", "puter",
}
