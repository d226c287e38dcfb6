package server

// choice is one option of a fixed select.
type choice struct {
	Value string
	Label string
}

var (
	genderChoices = []choice{
		{"masculino", "Masculino"},
		{"feminino", "Feminino"},
		{"outro", "Outro"},
	}

	activityLevelChoices = []choice{
		{"sedentario", "Sedentário (pouco ou nenhum exercício)"},
		{"leve", "Leve (exercício leve 1-3 dias/semana)"},
		{"moderado", "Moderado (exercício moderado 3-5 dias/semana)"},
		{"intenso", "Intenso (exercício intenso 6-7 dias/semana)"},
	}

	goalChoices = []choice{
		{"emagrecer", "Emagrecer"},
		{"manter", "Manter Peso"},
		{"ganhar_massa", "Ganhar Massa Muscular"},
	}

	workoutTimeChoices = []choice{
		{"qualquer", "Qualquer"},
		{"manhã", "Manhã"},
		{"tarde", "Tarde"},
		{"noite", "Noite"},
	}

	fitnessLevelChoices = []choice{
		{"iniciante", "Iniciante"},
		{"intermedio", "Intermédio"},
		{"avancado", "Avançado"},
	}
)
