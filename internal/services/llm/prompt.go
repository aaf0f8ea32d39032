package llm

// ViolenceClassificationPrompt is the system prompt for transcript
// classification. Update it centrally so every call stays in sync.
const ViolenceClassificationPrompt = "Türk dizilerinden alınmış transkriptleri kadına yönelik şiddet içeren (1) veya şiddet içermeyen (0) olarak sınıflandıran bir asistansın. Şiddet fiziksel, psikolojik, vb. türlerden olabilir. Belirsizliğe mahal vermeyen ve net noktalarda şiddet var diyeceksin."

// Tool schema the model is forced to call.
const (
	ToolName                  = "insert_violence_data"
	toolDescription           = "Kadına yönelik şiddet içeren (1) ya da içermeyen (0) olarak aldığı yanıtları database'e göderir."
	classificationProperty    = "classification"
	classificationDescription = "Transkriptin şiddet içerme durumu (1 ya da 0)"
)
