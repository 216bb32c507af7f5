package memory

import (
	"strconv"
	"time"

	"github.com/noah-isme/aulao-api/internal/models"
)

// Seed loads the demo marketplace: institutions, curricula, teachers, a catalog of
// class events scheduled relative to now and the demo student's enrollments.
func Seed(store *Store, now time.Time) {
	at := func(dayOffset, hour, minute int) time.Time {
		day := now.AddDate(0, 0, dayOffset)
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	}
	icon := func(name string) *string { return &name }

	for _, user := range []models.User{
		{ID: "u-student-ana", Name: "Ana Martins", Email: "ana@aluno.docens.app", Role: models.RoleStudent},
		{ID: "u-teacher-luiza", Name: "Luiza Costa", Email: "luiza@docens.app", Role: models.RoleTeacher},
		{ID: "u-teacher-rafael", Name: "Rafael Prado", Email: "rafael@docens.app", Role: models.RoleTeacher},
		{ID: "u-teacher-carlos", Name: "Carlos Mendes", Email: "carlos@docens.app", Role: models.RoleTeacher},
		{ID: "u-teacher-mariana", Name: "Mariana Souza", Email: "mariana@docens.app", Role: models.RoleTeacher},
		{ID: "u-teacher-beatriz", Name: "Beatriz Lima", Email: "beatriz@docens.app", Role: models.RoleTeacher},
	} {
		store.PutUser(user)
	}

	preferred := "ins-fgv"
	store.PutStudentProfile(models.StudentProfile{ID: "sp-ana", UserID: "u-student-ana", PreferredInstitutionID: &preferred})

	for _, teacher := range []models.TeacherProfile{
		{ID: "tp-luiza", UserID: "u-teacher-luiza", Photo: "LC", Headline: "Direito e redacao argumentativa",
			Bio: "Ex-aluna de Direito FGV. Coordena grupos de argumentacao para provas orais e estudos de caso.", IsVerified: true},
		{ID: "tp-rafael", UserID: "u-teacher-rafael", Photo: "RP", Headline: "Calculo, estatistica e raciocinio quantitativo",
			Bio: "Ex-insper com foco em calculo e estatistica aplicada para graduacao e vestibulares concorridos.", IsVerified: true},
		{ID: "tp-carlos", UserID: "u-teacher-carlos", Photo: "CM", Headline: "Matematica e ciencias exatas",
			Bio: "Engenheiro com mestrado em Matematica Aplicada. Especialista em preparacao para vestibulares de alta concorrencia.", IsVerified: true},
		{ID: "tp-mariana", UserID: "u-teacher-mariana", Photo: "MS", Headline: "Lingua portuguesa e literatura",
			Bio: "Mestre em Letras pela USP. Especialista em redacao dissertativa e analise literaria para FUVEST e ENEM."},
		{ID: "tp-beatriz", UserID: "u-teacher-beatriz", Photo: "BL", Headline: "Biologia e quimica para vestibulares",
			Bio: "Doutoranda em Biologia Molecular. Ensina ciencias da natureza com abordagem pratica e contextualizada.", IsVerified: true},
	} {
		store.PutTeacherProfile(teacher)
	}

	for _, institution := range []models.Institution{
		{ID: "ins-fgv", Name: "Fundação Getulio Vargas", ShortName: "FGV", City: "São Paulo", Type: models.InstitutionUniversity, LogoURL: "/imgs/faculdades/fgv-logo-0.png"},
		{ID: "ins-insper", Name: "Insper Instituto de Ensino e Pesquisa", ShortName: "Insper", City: "São Paulo", Type: models.InstitutionUniversity, LogoURL: "/imgs/faculdades/INsper.png"},
		{ID: "ins-inteli", Name: "Inteli - Instituto de Tecnologia e Liderança", ShortName: "Inteli", City: "São Paulo", Type: models.InstitutionUniversity, LogoURL: "/imgs/faculdades/inteli-logo.png"},
		{ID: "ins-mobile", Name: "Colégio Móbile", ShortName: "Móbile", City: "São Paulo", Type: models.InstitutionSchool, LogoURL: "/imgs/escolas/mobile.png"},
		{ID: "ins-band", Name: "Colégio Bandeirantes", ShortName: "Band", City: "São Paulo", Type: models.InstitutionSchool, LogoURL: "/imgs/escolas/Band-logo.jpg"},
		{ID: "ins-vertice", Name: "Colégio Vértice", ShortName: "Vértice", City: "São Paulo", Type: models.InstitutionSchool, LogoURL: "/imgs/escolas/vertice.png"},
	} {
		store.PutInstitution(institution)
	}

	for _, subject := range []models.Subject{
		{ID: "sub-calculo", Name: "Calculo I", Icon: icon("Sigma")},
		{ID: "sub-direito", Name: "Direito Constitucional", Icon: icon("Scale")},
		{ID: "sub-fisica", Name: "Fisica", Icon: icon("Atom")},
		{ID: "sub-redacao", Name: "Redacao", Icon: icon("PenLine")},
		{ID: "sub-matematica", Name: "Matematica", Icon: icon("Sigma")},
		{ID: "sub-portugues", Name: "Lingua Portuguesa", Icon: icon("BookOpen")},
		{ID: "sub-biologia", Name: "Biologia", Icon: icon("Dna")},
		{ID: "sub-quimica", Name: "Quimica", Icon: icon("FlaskConical")},
		{ID: "sub-historia", Name: "Historia", Icon: icon("Landmark")},
		{ID: "sub-literatura", Name: "Estudos Literários", Icon: icon("BookMarked")},
		{ID: "sub-geografia", Name: "Geografia", Icon: icon("Globe")},
		{ID: "sub-estatistica", Name: "Estatistica", Icon: icon("BarChart3")},
		{ID: "sub-ingles", Name: "Ingles", Icon: icon("Languages")},
	} {
		store.PutSubject(subject)
	}

	curricula := []struct {
		institutionID string
		prefix        string
		yearSuffix    string
		years         [][]string
	}{
		{"ins-mobile", "is-mobile", "º Ano", [][]string{
			{"sub-matematica", "sub-portugues", "sub-biologia", "sub-fisica", "sub-historia", "sub-ingles"},
			{"sub-matematica", "sub-portugues", "sub-quimica", "sub-fisica", "sub-literatura", "sub-geografia"},
			{"sub-matematica", "sub-redacao", "sub-quimica", "sub-biologia", "sub-fisica", "sub-historia"},
		}},
		{"ins-band", "is-band", "º Ano", [][]string{
			{"sub-matematica", "sub-fisica", "sub-portugues"},
			{"sub-quimica", "sub-matematica", "sub-biologia"},
			{"sub-redacao", "sub-fisica", "sub-matematica"},
		}},
		{"ins-vertice", "is-vert", "º Ano", [][]string{
			{"sub-matematica", "sub-portugues"},
			{"sub-quimica", "sub-fisica"},
			{"sub-redacao", "sub-matematica"},
		}},
		{"ins-fgv", "is-fgv", "º Periodo", [][]string{
			{"sub-redacao"},
			{"sub-direito"},
			{"sub-direito", "sub-calculo"},
		}},
		{"ins-insper", "is-insper", "º Periodo", [][]string{
			{"sub-calculo", "sub-fisica"},
			{"sub-calculo", "sub-estatistica"},
			{"sub-estatistica"},
		}},
		{"ins-inteli", "is-inteli", "º Periodo", [][]string{
			{"sub-calculo", "sub-fisica"},
			{"sub-estatistica", "sub-calculo"},
		}},
	}
	for _, curriculum := range curricula {
		for i, subjects := range curriculum.years {
			year := i + 1
			for _, subjectID := range subjects {
				store.AddInstitutionSubject(models.InstitutionSubject{
					ID:            curriculum.prefix + "-" + strconv.Itoa(year) + "-" + subjectID[len("sub-"):],
					InstitutionID: curriculum.institutionID,
					SubjectID:     subjectID,
					YearLabel:     strconv.Itoa(year) + curriculum.yearSuffix,
					YearOrder:     year,
				})
			}
		}
	}

	for i, pair := range [][3]string{
		{"tp-luiza", "sub-direito", "Graduacao"},
		{"tp-luiza", "sub-redacao", "Vestibular"},
		{"tp-rafael", "sub-calculo", "Graduacao"},
		{"tp-rafael", "sub-fisica", "Vestibular"},
		{"tp-rafael", "sub-estatistica", "Graduacao"},
		{"tp-carlos", "sub-matematica", "Vestibular"},
		{"tp-carlos", "sub-fisica", "Vestibular"},
		{"tp-carlos", "sub-quimica", "Vestibular"},
		{"tp-mariana", "sub-portugues", "Vestibular"},
		{"tp-mariana", "sub-literatura", "Vestibular"},
		{"tp-mariana", "sub-redacao", "Vestibular"},
		{"tp-beatriz", "sub-biologia", "Vestibular"},
		{"tp-beatriz", "sub-quimica", "Vestibular"},
		{"tp-beatriz", "sub-historia", "Vestibular"},
	} {
		level := pair[2]
		store.AddTeacherSubject(models.TeacherSubject{ID: "ts-" + strconv.Itoa(i+1), TeacherProfileID: pair[0], SubjectID: pair[1], LevelTag: &level})
	}

	liveURL := "https://meet.docens.app/calculo-intensivo"
	published := func(id, title, description, teacher, subject, institution string, startsAt time.Time, duration int, price int64, capacity, sold int) models.ClassEvent {
		created := now.AddDate(0, 0, -14)
		return models.ClassEvent{
			ID: id, Title: title, Description: description,
			TeacherProfileID: teacher, SubjectID: subject, InstitutionID: institution,
			StartsAt: startsAt, DurationMin: duration, PriceCents: price, Capacity: capacity, SoldSeats: sold,
			PublicationStatus: models.PublicationPublished, MeetingStatus: models.MeetingLocked,
			CreatedAt: created, UpdatedAt: created,
		}
	}

	calculo := published("ce-insper-calculo", "Calculo Intensivo: Limites e Derivadas",
		"Imersao ao vivo com lista guiada e resolucao de questoes de nivel Insper para a primeira prova.",
		"tp-rafael", "sub-calculo", "ins-insper", at(0, now.Hour()-1, 0), 100, 14900, 50, 34)
	calculo.MeetingStatus = models.MeetingReleased
	calculo.MeetingURL = &liveURL

	draft := published("ce-fgv-draft-casos", "Laboratorio de Casos Publicos",
		"Rascunho de novo encontro para aprofundar escrita de pareceres curtos e defesa de argumentos.",
		"tp-luiza", "sub-direito", "ins-fgv", at(8, 19, 0), 90, 11900, 40, 0)
	draft.PublicationStatus = models.PublicationDraft

	for _, event := range []models.ClassEvent{
		published("ce-fgv-argumentacao", "Clinica de Argumentacao para Casos Contemporaneos",
			"Sessao ao vivo focada em construcao de tese e estrutura de resposta para discussao juridica oral.",
			"tp-luiza", "sub-direito", "ins-fgv", at(1, 19, 30), 90, 12900, 60, 48),
		published("ce-fgv-redacao", "Oficina de Redacao para Provas de Bolsa",
			"Aulao com foco em repertorio, clareza e construcao de introducoes de alto impacto.",
			"tp-luiza", "sub-redacao", "ins-fgv", at(4, 18, 0), 120, 9900, 90, 90),
		calculo,
		published("ce-insper-estatistica", "Leitura de Dados para Estudos de Caso",
			"Sessao pratica com datasets reais, foco em interpretacao de graficos e narrativa quantitativa.",
			"tp-rafael", "sub-calculo", "ins-insper", at(3, 20, 0), 80, 13900, 45, 19),
		published("ce-mobile-fisica", "Fisica Aplicada para Segunda Fase",
			"Aulao orientado por questoes discursivas com enfase em movimento, energia e interpretacao fisica.",
			"tp-rafael", "sub-fisica", "ins-mobile", at(2, 17, 30), 90, 8900, 70, 55),
		draft,
		published("ce-mobile-matematica", "Matematica: Funcoes e Graficos para o Vestibular",
			"Aulao com resolucao intensiva de questoes de funcoes, trigonometria e geometria analitica.",
			"tp-carlos", "sub-matematica", "ins-mobile", at(3, 18, 0), 120, 9900, 60, 22),
		published("ce-mobile-matematica-2", "Matematica: Probabilidade e Combinatoria",
			"Sessao pratica com foco em probabilidade condicional e analise combinatoria.",
			"tp-carlos", "sub-matematica", "ins-mobile", at(7, 19, 30), 90, 8900, 50, 18),
		published("ce-mobile-quimica", "Quimica Organica: Reacoes e Nomenclatura",
			"Revisao completa de quimica organica com foco nas reacoes mais cobradas na segunda fase da FUVEST.",
			"tp-beatriz", "sub-quimica", "ins-mobile", at(2, 15, 0), 90, 7900, 40, 38),
		published("ce-mobile-portugues", "Lingua Portuguesa: Interpretacao e Gramatica",
			"Aula focada em interpretacao de textos literarios e gramatica contextualizada.",
			"tp-mariana", "sub-portugues", "ins-mobile", at(5, 17, 0), 100, 8500, 55, 30),
		published("ce-mobile-literatura", "Literatura Brasileira: Modernismo e Contemporaneo",
			"Sessao aprofundada sobre as obras da lista da FUVEST com analise critica.",
			"tp-mariana", "sub-literatura", "ins-mobile", at(6, 18, 30), 90, 7900, 45, 12),
		published("ce-mobile-biologia", "Biologia Celular: Divisao e Genetica",
			"Aulao sobre mitose, meiose e genetica mendeliana com exercicios de alta dificuldade.",
			"tp-beatriz", "sub-biologia", "ins-mobile", at(4, 16, 0), 90, 7500, 50, 27),
		published("ce-mobile-historia", "Historia do Brasil: Republica e Seculo XX",
			"Revisao tematica com analise de fontes primarias para provas discursivas.",
			"tp-beatriz", "sub-historia", "ins-mobile", at(9, 17, 0), 80, 6900, 60, 10),
		published("ce-mobile-redacao", "Redacao: Dissertacao Argumentativa para FUVEST",
			"Workshop ao vivo com producao, correcao e reescrita de redacao.",
			"tp-mariana", "sub-redacao", "ins-mobile", at(10, 18, 0), 120, 9500, 35, 35),
		published("ce-insper-estatistica-2", "Estatistica: Inferencia e Testes de Hipotese",
			"Sessao pratica com foco em testes t, qui-quadrado e regressao linear.",
			"tp-rafael", "sub-estatistica", "ins-insper", at(5, 19, 0), 100, 13900, 40, 15),
	} {
		store.PutClassEvent(event)
	}

	for _, seeded := range []struct {
		enrollment models.Enrollment
		payment    models.Payment
	}{
		{
			models.Enrollment{ID: "enr-ana-insper-calculo", ClassEventID: "ce-insper-calculo", StudentProfileID: "sp-ana", Status: models.EnrollmentPaid, CreatedAt: at(-3, 10, 0)},
			models.Payment{ID: "pay-ana-insper-calculo", EnrollmentID: "enr-ana-insper-calculo", Provider: models.ProviderStripe, AmountCents: 14900, Status: models.PaymentSucceeded},
		},
		{
			models.Enrollment{ID: "enr-ana-fgv-argumentacao", ClassEventID: "ce-fgv-argumentacao", StudentProfileID: "sp-ana", Status: models.EnrollmentPaid, CreatedAt: at(-1, 14, 0)},
			models.Payment{ID: "pay-ana-fgv-argumentacao", EnrollmentID: "enr-ana-fgv-argumentacao", Provider: models.ProviderMercadoPago, AmountCents: 12900, Status: models.PaymentSucceeded},
		},
		{
			models.Enrollment{ID: "enr-ana-mobile-fisica", ClassEventID: "ce-mobile-fisica", StudentProfileID: "sp-ana", Status: models.EnrollmentPending, CreatedAt: at(-1, 16, 0)},
			models.Payment{ID: "pay-ana-mobile-fisica", EnrollmentID: "enr-ana-mobile-fisica", Provider: models.ProviderStripe, AmountCents: 8900, Status: models.PaymentPending},
		},
	} {
		payment := seeded.payment
		payment.CreatedAt = seeded.enrollment.CreatedAt
		payment.UpdatedAt = seeded.enrollment.CreatedAt
		store.PutEnrollment(seeded.enrollment, &payment)
	}
}
