package dispatch

const (
	genericPrompt = "Entendi. Como posso ajudar?"

	askScheduleDetails = "Para agendar preciso do título e do horário. Ex.: \"Agendar dentista amanhã às 15h\"."
	scheduleFailed     = "❌ Não consegui agendar agora. Tente novamente em instantes."
	agendaFailed       = "❌ Não consegui consultar a agenda agora."
	agendaEmpty        = "📅 Nada agendado para esse período."

	askTaskItem       = "Qual tarefa devo anotar?"
	askTaskToComplete = "Qual tarefa você concluiu?"
	taskFailed        = "❌ Não consegui acessar suas tarefas agora."
	tasksEmpty        = "✅ Nenhuma tarefa pendente."

	askExpenseAmount = "Não entendi o valor do gasto. Ex.: \"gastei 45,90 no almoço\"."
	expenseFailed    = "❌ Não consegui registrar o gasto agora."
	reportFailed     = "❌ Não consegui gerar o relatório agora."
	reportEmpty      = "💸 Nada registrado este mês."

	askFolder      = "Qual pasta? Use /pasta <nome> para listar uma pasta primeiro."
	askFolderName  = "Qual pasta? Ex.: /pasta Projeto Beta"
	driveFailed    = "❌ Não consegui acessar o Drive agora."
	summaryFailed  = "❌ Não consegui resumir os arquivos agora."
	folderNotFound = "📂 Não encontrei a pasta \"%s\"."
	folderEmpty    = "📂 A pasta \"%s\" está vazia."
	shareHint      = "Verifique se ela foi compartilhada com %s."
)

var monthsPT = [...]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}
