package app

import (
	"errors"
	"fmt"

	"github.com/gajzzs/hostsbypass/internal/update"
)

const browserHint = "Возможно потребуется перезапустить браузер."

var (
	progressMessages = map[Action]string{
		ActionInstall:   "Установка обхода... Пожалуйста, подождите.",
		ActionUpdate:    "Обновление обхода... Пожалуйста, подождите.",
		ActionUninstall: "Удаление обхода... Пожалуйста, подождите.",
	}
	successMessages = map[Action]string{
		ActionInstall:   "Файл hosts успешно установлен!",
		ActionUpdate:    "Файл hosts успешно обновлён!",
		ActionUninstall: "Файл hosts успешно восстановлен!",
	}
	failureMessages = map[Action]string{
		ActionInstall:   "Не удалось установить файл hosts.",
		ActionUpdate:    "Не удалось обновить файл hosts.",
		ActionUninstall: "Не удалось восстановить файл hosts.",
	}
)

// outcomeMessage renders the result of a hosts operation. hint is the
// platform elevation hint shown on failure.
func outcomeMessage(action Action, ok bool, hint string) string {
	if ok {
		return successMessages[action] + "\n" + browserHint
	}
	return failureMessages[action] + "\n" + hint
}

func updateMessage(r update.Result, err error) string {
	if err != nil {
		return "Не удалось проверить обновления.\n" + updateErrorText(err)
	}
	head := fmt.Sprintf("Установленная версия: v%s\nПоследняя версия: v%s\n", r.Local, r.Latest)
	if r.Newer {
		return head + "Доступна новая версия!\nСкачать: " + r.DownloadURL
	}
	return head + "У вас установлена последняя версия."
}

func updateErrorText(err error) string {
	switch {
	case errors.Is(err, update.ErrNoUpdateURL):
		return "URL обновления не найден."
	case errors.Is(err, update.ErrNoMetadata):
		return "Не удалось получить информацию об обновлении."
	default:
		return err.Error()
	}
}
