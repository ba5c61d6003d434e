// Package catalog holds the closed set of module types recognized by the
// Web RPA editor, plus the structural "shell" node types the visual graph
// library uses as generic wrappers. Both sets are process-wide constants;
// validation must agree with every other conforming implementation on
// exactly this list.
package catalog

// Family groups module types by capability. Families only matter for
// introspection (the /catalog endpoint); validation cares about membership.
type Family string

const (
	FamilyPage        Family = "page"
	FamilyElement     Family = "element"
	FamilyInput       Family = "input"
	FamilyExtraction  Family = "extraction"
	FamilyText        Family = "text"
	FamilyData        Family = "data"
	FamilyDateTime    Family = "datetime"
	FamilyControlFlow Family = "control_flow"
	FamilyVariable    Family = "variable"
	FamilyTrigger     Family = "trigger"
	FamilyFile        Family = "file"
	FamilySpreadsheet Family = "spreadsheet"
	FamilyDocument    Family = "document"
	FamilyMedia       Family = "media"
	FamilyAI          Family = "ai"
	FamilyMessaging   Family = "messaging"
	FamilyNetwork     Family = "network"
	FamilySystem      Family = "system"
	FamilyUtility     Family = "utility"
)

// Shell node types carry no automation behavior of their own. The module
// wrapper's real type lives in node data; the rest are editor furniture.
const (
	ShellTypeModule        = "moduleNode"
	ShellTypeGroup         = "groupNode"
	ShellTypeNote          = "noteNode"
	ShellTypeSubflowHeader = "subflowHeader"
)

var shellTypes = map[string]struct{}{
	ShellTypeModule:        {},
	ShellTypeGroup:         {},
	ShellTypeNote:          {},
	ShellTypeSubflowHeader: {},
}

var modulesByFamily = map[Family][]string{
	FamilyPage: {
		"open_page", "close_page", "refresh_page", "navigate_back",
		"navigate_forward", "new_tab", "close_tab", "switch_tab",
		"get_page_url", "get_page_title", "set_viewport", "scroll_page",
		"screenshot_page", "save_page_html", "wait_for_navigation",
		"set_cookie", "get_cookie", "delete_cookie", "execute_script",
		"handle_dialog",
	},
	FamilyElement: {
		"click_element", "double_click_element", "right_click_element",
		"hover_element", "input_text", "clear_input", "select_option",
		"check_element", "upload_file", "drag_element", "scroll_to_element",
		"focus_element", "get_element_text", "get_element_attribute",
		"set_element_attribute", "get_element_count", "wait_for_element",
		"wait_element_hidden", "element_exists", "highlight_element",
		"screenshot_element", "submit_form",
	},
	FamilyInput: {
		"move_mouse", "mouse_click", "mouse_double_click", "mouse_right_click",
		"mouse_scroll", "mouse_drag", "keyboard_input", "keyboard_press",
		"keyboard_hotkey", "get_mouse_position", "lock_input", "unlock_input",
	},
	FamilyExtraction: {
		"extract_table", "extract_list", "extract_links", "extract_images",
		"batch_extract", "paginated_extract", "download_file", "parse_html",
		"xpath_query", "css_query", "regex_extract", "ocr_extract",
	},
	FamilyText: {
		"text_concat", "text_split", "text_replace", "text_trim", "text_case",
		"text_substring", "text_length", "text_contains", "text_pad",
		"text_reverse", "text_template", "regex_match", "regex_replace",
		"string_format", "url_encode", "url_decode", "html_encode",
		"html_decode",
	},
	FamilyData: {
		"json_parse", "json_stringify", "json_path", "array_append",
		"array_filter", "array_map", "array_sort", "array_slice", "array_join",
		"array_length", "array_unique", "array_merge", "object_get",
		"object_set", "object_keys", "object_merge", "math_calculate",
		"number_format", "random_number", "generate_uuid",
	},
	FamilyDateTime: {
		"get_current_time", "format_date", "parse_date", "date_add",
		"date_diff", "date_compare", "timestamp_convert", "timezone_convert",
	},
	FamilyControlFlow: {
		"if_condition", "else_branch", "switch_case", "loop_count",
		"loop_list", "loop_condition", "loop_break", "loop_continue",
		"delay_wait", "wait_until", "try_catch", "throw_error",
		"stop_workflow", "run_subflow", "parallel_branch", "merge_branch",
	},
	FamilyVariable: {
		"set_variable", "get_variable", "delete_variable",
		"increment_variable", "append_variable", "clear_variables",
	},
	FamilyTrigger: {
		"manual_trigger", "schedule_trigger", "hotkey_trigger",
		"file_watch_trigger", "webhook_trigger", "email_trigger",
		"clipboard_trigger", "window_trigger", "startup_trigger",
		"interval_trigger",
	},
	FamilyFile: {
		"read_file", "write_file", "append_file", "copy_file", "move_file",
		"delete_file", "rename_file", "file_exists", "list_directory",
		"create_directory", "delete_directory", "zip_files", "unzip_file",
		"get_file_info", "watch_folder",
	},
	FamilySpreadsheet: {
		"open_excel", "read_excel", "write_excel", "append_excel_row",
		"get_excel_sheet", "add_excel_sheet", "delete_excel_sheet",
		"save_excel", "close_excel", "read_csv", "write_csv", "excel_to_csv",
		"csv_to_excel", "merge_excel",
	},
	FamilyDocument: {
		"pdf_to_word", "word_to_pdf", "pdf_to_image", "image_to_pdf",
		"pdf_merge", "pdf_split", "pdf_extract_text", "pdf_extract_images",
		"pdf_encrypt", "pdf_decrypt", "word_to_html", "html_to_pdf",
		"markdown_to_html",
	},
	FamilyMedia: {
		"image_resize", "image_crop", "image_rotate", "image_watermark",
		"image_compress", "image_convert", "video_convert",
		"video_extract_audio", "video_screenshot", "audio_convert",
		"text_to_speech", "speech_to_text",
	},
	FamilyAI: {
		"ai_chat", "ai_text_generate", "ai_image_generate", "ai_summarize",
		"ai_translate", "ai_classify", "ai_extract_fields", "ai_sentiment",
		"ai_vision",
	},
	FamilyMessaging: {
		"send_email", "receive_email", "send_sms", "wechat_send_message",
		"wechat_group_message", "dingtalk_send_message", "dingtalk_robot",
		"feishu_send_message", "feishu_robot", "qq_send_message",
		"telegram_send_message", "slack_send_message", "webhook_send",
		"server_chan_push",
	},
	FamilyNetwork: {
		"http_request", "http_download", "http_upload", "ftp_upload",
		"ftp_download", "db_connect", "db_query", "db_execute", "db_close",
		"redis_command", "websocket_send", "dns_lookup",
	},
	FamilySystem: {
		"run_command", "run_program", "close_program", "activate_window",
		"minimize_window", "maximize_window", "close_window",
		"get_window_list", "clipboard_read", "clipboard_write",
		"show_notification", "play_sound", "set_env_variable",
		"get_env_variable", "take_screenshot",
	},
	FamilyUtility: {
		"md5_hash", "sha256_hash", "base64_encode", "base64_decode",
		"aes_encrypt", "aes_decrypt", "rsa_encrypt", "rsa_decrypt",
		"generate_password", "qrcode_generate", "qrcode_decode",
		"barcode_generate",
	},
}

var moduleTypes = buildModuleIndex()

func buildModuleIndex() map[string]Family {
	index := make(map[string]Family)

	for family, types := range modulesByFamily {
		for _, moduleType := range types {
			index[moduleType] = family
		}
	}

	return index
}

// IsModuleType reports whether moduleType is a recognized automation module.
func IsModuleType(moduleType string) bool {
	_, ok := moduleTypes[moduleType]

	return ok
}

// IsShellType reports whether nodeType is a structural editor-only type.
func IsShellType(nodeType string) bool {
	_, ok := shellTypes[nodeType]

	return ok
}

// FamilyOf returns the capability family of a module type, or "" when the
// type is not in the catalog.
func FamilyOf(moduleType string) Family {
	return moduleTypes[moduleType]
}

// ModuleCount returns the number of recognized module types.
func ModuleCount() int {
	return len(moduleTypes)
}

// Families returns the module types grouped by family. The returned map is a
// copy; callers may not mutate catalog state.
func Families() map[Family][]string {
	families := make(map[Family][]string, len(modulesByFamily))

	for family, types := range modulesByFamily {
		copied := make([]string, len(types))
		copy(copied, types)
		families[family] = copied
	}

	return families
}
