package evaluation

import (
	"fmt"
	"strings"
)

// ContextFields carries the submission's pedagogical context. Only the
// non-empty fields are interpolated into the prompt.
type ContextFields struct {
	Specialty         string
	Semester          string
	LearningSituation string
	Stage             string
	Practice          string
	Parameters        string
}

const defaultSpecialty = "Usinagem"

const promptInstruction = "Você é um especialista em %s e vai avaliar a transcrição do audio do aluno que explica o que está fazendo. " +
	"Deve responder com uma avaliação e sugestões de melhorias, cuidados e pontos de atenção. " +
	"Considere que o aluno está em um ambiente de aprendizagem e não tem experiência. " +
	"Também considere que o aluno pode ter dificuldades de comunicação e pode não usar a terminologia correta. " +
	"Seja gentil e encorajador, mas também honesto e direto. " +
	"Não use jargões técnicos ou termos complexos. Responda em português."

// BuildPrompt interpolates the submission context into the evaluator
// instruction. Pure string composition: same fields in, same prompt
// out, and it never fails.
func BuildPrompt(f ContextFields) string {
	specialty := f.Specialty
	if specialty == "" {
		specialty = defaultSpecialty
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(promptInstruction, specialty))
	if f.Semester != "" {
		b.WriteString(" Aluno está no semestre: " + f.Semester + ".")
	}
	if f.Practice != "" {
		b.WriteString(" Aluno está nessa prática: " + f.Practice + ".")
	}
	if f.LearningSituation != "" {
		b.WriteString(" Desta Situação de Aprendizagem: " + f.LearningSituation + ".")
	}
	if f.Stage != "" {
		b.WriteString(" Nesta etapa da prática: " + f.Stage + ".")
	}
	if f.Parameters != "" {
		b.WriteString(" Com estes parâmetros: " + f.Parameters + ".")
	}
	return b.String()
}
