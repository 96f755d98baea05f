package web

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, "app.name", "Ignite Call")

	message.SetString(lang, "home.title", "Descomplique sua agenda | Ignite Call")
	message.SetString(lang, "home.description", "Conecte seu calendário e permita que as pessoas marquem agendamentos no seu tempo livre.")
	message.SetString(lang, "home.heading", "Agendamento descomplicado")
	message.SetString(lang, "home.text", "Conecte seu calendário e permita que as pessoas marquem agendamentos no seu tempo livre.")
	message.SetString(lang, "home.claim.placeholder", "seu-usuario")
	message.SetString(lang, "home.claim.prefix", "ignite.com/")
	message.SetString(lang, "home.claim.submit", "Reservar")
	message.SetString(lang, "home.claim.hint", "Digite o nome do usuário desejado")
	message.SetString(lang, "home.preview.alt", "Calendário simbolizando aplicação em funcionamento")

	message.SetString(lang, "register.title", "Crie uma conta | Ignite Call")
	message.SetString(lang, "register.heading", "Bem-vindo ao Ignite Call!")
	message.SetString(lang, "register.text", "Precisamos de algumas informações para criar seu perfil! Ah, você pode editar essas informações depois.")
	message.SetString(lang, "register.step", "Passo %d de %d")
	message.SetString(lang, "register.username", "Nome de usuário")
	message.SetString(lang, "register.name", "Nome completo")
	message.SetString(lang, "register.name.placeholder", "Seu nome")
	message.SetString(lang, "register.submit", "Próximo passo")

	message.SetString(lang, "connect.title", "Conecte sua agenda do Google | Ignite Call")
	message.SetString(lang, "connect.heading", "Conecte sua agenda!")
	message.SetString(lang, "connect.text", "Conecte o seu calendário para verificar automaticamente as horas ocupadas e os novos eventos à medida em que são agendados.")
	message.SetString(lang, "connect.google", "Google Calendar")
	message.SetString(lang, "connect.button", "Conectar")
	message.SetString(lang, "connect.connected", "Conectado")
	message.SetString(lang, "connect.permissions", "Falha ao se conectar ao Google, verifique se você habilitou as permissões de acesso ao Google Calendar.")
	message.SetString(lang, "connect.pending", "Reserve um nome de usuário antes de conectar sua agenda.")

	message.SetString(lang, "schedule.title", "Agendar com %s | Ignite Call")
	message.SetString(lang, "schedule.previous", "Mês anterior")
	message.SetString(lang, "schedule.next", "Próximo mês")
	message.SetString(lang, "schedule.timepicker.empty", "Nenhum horário disponível neste dia.")

	message.SetString(lang, "confirm.title", "Confirmar agendamento | Ignite Call")
	message.SetString(lang, "confirm.name", "Seu nome")
	message.SetString(lang, "confirm.email", "Endereço de e-mail")
	message.SetString(lang, "confirm.observations", "Observações")
	message.SetString(lang, "confirm.cancel", "Cancelar")
	message.SetString(lang, "confirm.submit", "Confirmar")
	message.SetString(lang, "confirm.success", "Agendamento realizado com sucesso!")

	message.SetString(lang, "error.title", "Algo deu errado | Ignite Call")
	message.SetString(lang, "error.back", "Voltar para o início")

	message.SetString(lang, "weekday.0", "domingo")
	message.SetString(lang, "weekday.1", "segunda-feira")
	message.SetString(lang, "weekday.2", "terça-feira")
	message.SetString(lang, "weekday.3", "quarta-feira")
	message.SetString(lang, "weekday.4", "quinta-feira")
	message.SetString(lang, "weekday.5", "sexta-feira")
	message.SetString(lang, "weekday.6", "sábado")

	message.SetString(lang, "weekday.short.0", "DOM.")
	message.SetString(lang, "weekday.short.1", "SEG.")
	message.SetString(lang, "weekday.short.2", "TER.")
	message.SetString(lang, "weekday.short.3", "QUA.")
	message.SetString(lang, "weekday.short.4", "QUI.")
	message.SetString(lang, "weekday.short.5", "SEX.")
	message.SetString(lang, "weekday.short.6", "SÁB.")

	message.SetString(lang, "month.1", "janeiro")
	message.SetString(lang, "month.2", "fevereiro")
	message.SetString(lang, "month.3", "março")
	message.SetString(lang, "month.4", "abril")
	message.SetString(lang, "month.5", "maio")
	message.SetString(lang, "month.6", "junho")
	message.SetString(lang, "month.7", "julho")
	message.SetString(lang, "month.8", "agosto")
	message.SetString(lang, "month.9", "setembro")
	message.SetString(lang, "month.10", "outubro")
	message.SetString(lang, "month.11", "novembro")
	message.SetString(lang, "month.12", "dezembro")

	message.SetString(lang, "date.day_month", "%02d de %s")
	message.SetString(lang, "date.month_year", "%s %s")
	message.SetString(lang, "time.hour", "%02d:00h")
}
